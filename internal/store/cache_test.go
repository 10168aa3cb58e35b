package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Minute

func newCachedSQLite(t *testing.T) (*CachedStore, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	t.Cleanup(func() { rdb.Close() }) //nolint:errcheck
	return NewCachedStore(newTestSQLiteStore(t), rdb, testTTL), mock
}

func TestCachedStore_ReadThrough(t *testing.T) {
	c, mock := newCachedSQLite(t)
	ctx := context.Background()

	_, err := c.Store.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("Acme")})
	require.NoError(t, err)

	body := `{"Common":{"Firmographics":{"company_name":"Acme"}}}`
	mock.ExpectGet(cacheKey("TX-1")).RedisNil()
	mock.ExpectSet(cacheKey("TX-1"), body, testTTL).SetVal("OK")

	d, err := c.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", companyName(t, d))

	mock.ExpectGet(cacheKey("TX-1")).SetVal(body)
	d, err = c.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", companyName(t, d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_MissNotCached(t *testing.T) {
	c, mock := newCachedSQLite(t)

	mock.ExpectGet(cacheKey("TX-none")).RedisNil()

	d, err := c.LatestSubmission(context.Background(), "TX-none")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedStore_RedisDownFallsBack(t *testing.T) {
	c, mock := newCachedSQLite(t)
	ctx := context.Background()

	_, err := c.Store.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("Acme")})
	require.NoError(t, err)

	mock.ExpectGet(cacheKey("TX-1")).SetErr(errors.New("connection refused"))
	mock.ExpectSet(cacheKey("TX-1"), `{"Common":{"Firmographics":{"company_name":"Acme"}}}`, testTTL).SetErr(errors.New("connection refused"))

	d, err := c.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", companyName(t, d))
}

func TestCachedStore_InvalidatesOnWrite(t *testing.T) {
	c, mock := newCachedSQLite(t)
	ctx := context.Background()

	mock.ExpectDel(cacheKey("TX-1")).SetVal(0)
	seq, err := c.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("v1")})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	mock.ExpectDel(cacheKey("TX-1"), cacheKey("TX-2")).SetVal(1)
	_, err = c.PutSubmissions(ctx, []SubmissionVersion{
		{TransactionID: "TX-1", Sequence: 2, Data: doc("v2")},
		{TransactionID: "TX-2", Sequence: 1, Data: doc("w1")},
		{TransactionID: "TX-1", Sequence: 3, Data: doc("v3")},
	})
	require.NoError(t, err)

	mock.ExpectDel(cacheKey("TX-2")).SetVal(1)
	require.NoError(t, c.DeleteSubmission(ctx, "TX-2"))

	mock.ExpectDel(cacheKey("TX-1")).SetErr(errors.New("connection refused"))
	_, err = c.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("v4")})
	assert.ErrorContains(t, err, "cache invalidate")

	assert.NoError(t, mock.ExpectationsWereMet())
}
