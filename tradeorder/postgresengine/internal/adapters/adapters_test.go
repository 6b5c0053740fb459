package adapters

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBeginRefused = errors.New("begin refused")

// recordingBeginQuerier records the options of every BeginTx call and refuses it.
type recordingBeginQuerier struct {
	txOptions []pgx.TxOptions
}

func (q *recordingBeginQuerier) BeginTx(_ context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	q.txOptions = append(q.txOptions, txOptions)
	return nil, errBeginRefused
}

func (q *recordingBeginQuerier) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errBeginRefused
}

func Test_PGXAdapter_BeginTx_Starts_A_Serializable_Transaction(t *testing.T) {
	// arrange
	querier := &recordingBeginQuerier{}
	adapter := NewPGXAdapter(querier)

	// act
	tx, err := adapter.BeginTx(context.Background())

	// assert
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, errBeginRefused)
	require.Len(t, querier.txOptions, 1)
	assert.Equal(t, pgx.Serializable, querier.txOptions[0].IsoLevel)
}

func Test_serializableTxOptions(t *testing.T) {
	options := serializableTxOptions()

	assert.Equal(t, sql.LevelSerializable, options.Isolation)
	assert.False(t, options.ReadOnly)
}
