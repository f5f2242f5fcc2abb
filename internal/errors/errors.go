// Package errors provides error handling for lexsync.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints for operators (for example a migration to apply)
//
// Usage:
//
//	if err := download(ctx); err != nil {
//	    return errors.Wrapf(err, "download %s", url)
//	}
//
//	return errors.WithHint(err, "apply the migration with: lexsync model <id> --apply")
//
// Domain sentinels stay in internal/core/domain, which imports the standard
// library only; Is and As here match them through any wrapping.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping.
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// Operator-facing annotations.
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Inspection.
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Mark tags err so that Is(err, reference) holds without changing its message.
var Mark = crdb.Mark
