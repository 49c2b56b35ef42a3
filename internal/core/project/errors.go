package project

import "errors"

var (
	// ErrProjectNotFound はプロジェクトが存在しない場合に返却されます。
	ErrProjectNotFound = errors.New("project: not found")
	// ErrProjectAlreadyExists は ID 重複時に返却されます。
	ErrProjectAlreadyExists = errors.New("project: id already exists")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("project: invalid id")
	// ErrInvalidName はプロジェクト名が不正な場合に返却されます。
	ErrInvalidName = errors.New("project: invalid name")
	// ErrInvalidCode は区分コードが不正な場合に返却されます。
	ErrInvalidCode = errors.New("project: invalid project code")
	// ErrClientNameRequired はクライアント案件でクライアント名が無い場合に返却されます。
	ErrClientNameRequired = errors.New("project: client name is required for client projects")
	// ErrInvalidDescription は説明が長すぎる場合に返却されます。
	ErrInvalidDescription = errors.New("project: invalid description")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("project: invalid status")
	// ErrInvalidStartDate は開始日が未指定の場合に返却されます。
	ErrInvalidStartDate = errors.New("project: invalid start date")
	// ErrInvalidDateRange は終了日が開始日より前の場合に返却されます。
	ErrInvalidDateRange = errors.New("project: end date precedes start date")
	// ErrInvalidBudgetCap は予算上限が負の場合に返却されます。
	ErrInvalidBudgetCap = errors.New("project: invalid budget cap")
	// ErrInvalidImportance は戦略重要度が範囲外の場合に返却されます。
	ErrInvalidImportance = errors.New("project: strategic importance must be between 1 and 10")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("project: invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("project: invalid page token")
)
