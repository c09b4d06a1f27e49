package graphstore

import (
	"context"

	globalctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/global"
)

// GlobalLoadOptions configures ToGlobalContextBuilder.
type GlobalLoadOptions struct {
	CommunityLevel int // defaults to 1
}

// ToGlobalContextBuilder loads artifacts at the (default 1) community
// level and returns a ready Global Context Builder.
func (l *Loader) ToGlobalContextBuilder(ctx context.Context, opts GlobalLoadOptions) (*globalctx.Builder, error) {
	level := opts.CommunityLevel
	if level == 0 {
		level = 1
	}
	artifacts, err := l.Load(ctx, level)
	if err != nil {
		return nil, err
	}
	return globalctx.NewBuilder(artifacts.CommunityReports, artifacts.Entities), nil
}
