package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execTx stubs just the Exec path of a transaction
type execTx struct {
	pgx.Tx
	tag pgconn.CommandTag
	err error
}

func (t execTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tag, t.err
}

func TestChainDeleteTxForeignKeyIsConflict(t *testing.T) {
	r := NewChainRepository(nil)

	// A step inserted after the service's emptiness check lands here as a
	// foreign key violation on the delete.
	tx := execTx{err: &pgconn.PgError{Code: pgForeignKeyViolation}}
	err := r.DeleteTx(context.Background(), tx, uuid.New())

	require.Error(t, err)
	assert.Equal(t, fault.KindConflict, fault.KindOf(err))
}

func TestChainDeleteTxZeroRowsIsNotFound(t *testing.T) {
	r := NewChainRepository(nil)

	tx := execTx{tag: pgconn.NewCommandTag("DELETE 0")}
	err := r.DeleteTx(context.Background(), tx, uuid.New())

	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestChainDeleteTxOtherErrorsStayUnkinded(t *testing.T) {
	r := NewChainRepository(nil)

	tx := execTx{err: &pgconn.PgError{Code: "57014"}}
	err := r.DeleteTx(context.Background(), tx, uuid.New())

	require.Error(t, err)
	assert.Equal(t, fault.KindUnknown, fault.KindOf(err))
}

func TestChainDeleteTxSuccess(t *testing.T) {
	r := NewChainRepository(nil)

	tx := execTx{tag: pgconn.NewCommandTag("DELETE 1")}
	assert.NoError(t, r.DeleteTx(context.Background(), tx, uuid.New()))
}
