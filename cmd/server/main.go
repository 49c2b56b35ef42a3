package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/resource-allocation/internal/adapters/grpc/handler"
	"github.com/ogurasousui/resource-allocation/internal/adapters/repository/postgres"
	"github.com/ogurasousui/resource-allocation/internal/adapters/repository/sqlite"
	"github.com/ogurasousui/resource-allocation/internal/core/allocation"
	"github.com/ogurasousui/resource-allocation/internal/core/dashboard"
	"github.com/ogurasousui/resource-allocation/internal/core/employee"
	"github.com/ogurasousui/resource-allocation/internal/core/project"
	"github.com/ogurasousui/resource-allocation/internal/core/skill"
	"github.com/ogurasousui/resource-allocation/internal/platform/config"
	pg "github.com/ogurasousui/resource-allocation/internal/platform/db/postgres"
	"github.com/ogurasousui/resource-allocation/internal/platform/logging"
	"github.com/ogurasousui/resource-allocation/internal/platform/metrics"
	"github.com/ogurasousui/resource-allocation/internal/platform/server"
	"github.com/ogurasousui/resource-allocation/internal/platform/tracing"
)

const tracerName = "github.com/ogurasousui/resource-allocation/internal/core/allocation"

// stores はストアドライバごとのリポジトリとトランザクション境界をまとめたものです。
type stores struct {
	employees      employee.Repository
	projects       project.Repository
	assignments    allocation.Repository
	skills         skill.Repository
	employeeSkills skill.EmployeeSkillRepository
	tx             *pg.TransactionManager
	locker         allocation.StoreLocker
	close          func() error
}

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, effectiveConfigPath(*configPath)); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(os.Stderr, cfg.Log)

	tp, shutdownTracing, err := tracing.Setup(os.Stdout, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Warn("store close failed", slog.Any("error", err))
		}
	}()
	logger.Info("record store opened", slog.String("driver", cfg.Store.Driver))

	m := metrics.New()

	// tx が nil のとき各サービスはトランザクションなしで動作します。
	var txManager interface {
		employee.TransactionManager
		project.TransactionManager
		allocation.TransactionManager
		skill.TransactionManager
	}
	if st.tx != nil {
		txManager = st.tx
	}

	projectSvc := project.NewService(st.projects, nil, txManager, nil)

	opts := []allocation.Option{
		allocation.WithRecorder(m),
		allocation.WithLogger(logger),
		allocation.WithTracer(tp.Tracer(tracerName)),
	}
	if txManager != nil {
		opts = append(opts, allocation.WithTransactionManager(txManager))
	}
	if st.locker != nil {
		opts = append(opts, allocation.WithStoreLocker(st.locker))
	}
	allocationSvc := allocation.NewService(st.assignments, st.employees, st.projects, opts...)
	employeeSvc := employee.NewService(st.employees, nil, txManager, employee.WithCeilingGuard(allocationSvc))
	dashboardSvc := dashboard.NewService(employeeSvc, projectSvc, allocationSvc)
	skillSvc := skill.NewService(st.skills, st.employeeSkills, st.employees, st.assignments, skill.WithTransactionManager(txManager))

	grpcServer := server.New(cfg.Server.ListenAddr, server.Services{
		Employees:   handler.NewEmployeeGrpcHandler(employeeSvc),
		Projects:    handler.NewProjectGrpcHandler(projectSvc),
		Assignments: handler.NewAssignmentGrpcHandler(allocationSvc),
		Dashboards:  handler.NewDashboardGrpcHandler(dashboardSvc),
		Skills:      handler.NewSkillGrpcHandler(skillSvc),
	}, logger, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Run(gctx)
	})
	if cfg.Metrics.ListenAddr != "" {
		g.Go(func() error {
			logger.Info("metrics endpoint listening", slog.String("addr", cfg.Metrics.ListenAddr))
			return m.Serve(gctx, cfg.Metrics.ListenAddr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &stores{
			employees:      store.Employees(),
			projects:       store.Projects(),
			assignments:    store.Assignments(),
			skills:         store.Skills(),
			employeeSkills: store.EmployeeSkills(),
			close:          store.Close,
		}, nil
	default:
		pool, err := pg.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("initialize database pool: %w", err)
		}
		assignments := postgres.NewAssignmentRepository(pool)
		return &stores{
			employees:      postgres.NewEmployeeRepository(pool),
			projects:       postgres.NewProjectRepository(pool),
			assignments:    assignments,
			skills:         postgres.NewSkillRepository(pool),
			employeeSkills: postgres.NewEmployeeSkillRepository(pool),
			tx:             pg.NewTransactionManager(pool),
			locker:         assignments,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	}
}
