package handler

import (
	"context"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateLayout = "2006-01-02"

// structCall は structpb.Struct を受け取り返す unary RPC の実装です。
type structCall func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryMethod は生成コードと同じ形で MethodDesc を組み立てます。
func unaryMethod(serviceName, methodName string, bind func(srv any) structCall) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + methodName
	return grpc.MethodDesc{
		MethodName: methodName,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := bind(srv)
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*structpb.Struct))
			})
		},
	}
}

// request は structpb.Struct のフィールドを型付きで読み出します。
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(req *structpb.Struct) (request, error) {
	if req == nil {
		return request{}, status.Error(codes.InvalidArgument, "request is required")
	}
	return request{fields: req.GetFields()}, nil
}

// has はキーが存在するかを返します。null も存在として扱います。
func (r request) has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

func (r request) value(key string) (*structpb.Value, bool) {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (r request) str(key string) (string, error) {
	v, ok := r.value(key)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", fieldError(key, "must be a string")
	}
	return s.StringValue, nil
}

func (r request) optStr(key string) (*string, error) {
	if _, ok := r.value(key); !ok {
		return nil, nil
	}
	s, err := r.str(key)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r request) number(key string) (float64, bool, error) {
	v, ok := r.value(key)
	if !ok {
		return 0, false, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, false, fieldError(key, "must be a number")
	}
	return n.NumberValue, true, nil
}

func (r request) integer(key string) (int, error) {
	n, _, err := r.number(key)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, fieldError(key, "must be an integer")
	}
	return int(n), nil
}

func (r request) optInt(key string) (*int, error) {
	if _, ok := r.value(key); !ok {
		return nil, nil
	}
	n, err := r.integer(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r request) optFloat(key string) (*float64, error) {
	n, ok, err := r.number(key)
	if err != nil || !ok {
		return nil, err
	}
	return &n, nil
}

func (r request) boolean(key string) (bool, error) {
	v, ok := r.value(key)
	if !ok {
		return false, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, fieldError(key, "must be a boolean")
	}
	return b.BoolValue, nil
}

func (r request) optBool(key string) (*bool, error) {
	if _, ok := r.value(key); !ok {
		return nil, nil
	}
	b, err := r.boolean(key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// date は YYYY-MM-DD 形式の日付を読み出します。未指定または空文字の場合は nil です。
func (r request) date(key string) (*time.Time, error) {
	s, err := r.str(key)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, trimmed, time.UTC)
	if err != nil {
		return nil, fieldError(key, "invalid format, expected YYYY-MM-DD")
	}
	return &t, nil
}

func (r request) dateOrZero(key string) (time.Time, error) {
	t, err := r.date(key)
	if err != nil || t == nil {
		return time.Time{}, err
	}
	return *t, nil
}

func fieldError(key, msg string) error {
	return status.Errorf(codes.InvalidArgument, "%s: %s", key, msg)
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func optionalDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
