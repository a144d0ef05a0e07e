package db

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional gorm transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func Ctx(ctx context.Context) Context { return Context{Ctx: ctx} }

// Conn returns the transaction when set, otherwise base, bound to Ctx.
func (c Context) Conn(base *gorm.DB) *gorm.DB {
	tx := c.Tx
	if tx == nil {
		tx = base
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(ctx)
}
