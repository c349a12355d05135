package driver

import "context"

// Repository はドライバー集合スナップショットの永続化の抽象です。
// スナップショット全体が永続化の単位であり、レコード単位のログは持ちません。
type Repository interface {
	// Load は保存済みスナップショットを返します。未保存や破損時は空の Collection を返します。
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, c Collection) error
}
