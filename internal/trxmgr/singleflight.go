package trxmgr

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var findGroup singleflight.Group

// singleflightFind collapses concurrent identical finder queries into a
// single scan.
func singleflightFind(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := findGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
