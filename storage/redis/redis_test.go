package redis_test

import (
	"context"
	"testing"

	"github.com/Comcast/fernspiel/storage"
	"github.com/Comcast/fernspiel/storage/redis"
	"github.com/Comcast/fernspiel/storage/storagetest"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisJournal_Contract(t *testing.T) {
	mr := miniredis.RunT(t)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	j := redis.NewFromClient(client)
	require.NoError(t, j.Open(context.Background()))
	defer j.Close(context.Background())

	storagetest.RunJournalContract(t, j)

	assert.True(t, mr.Exists("fernspiel:journal"))
}

func TestRedisJournal_MaxLen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	j := redis.New(mr.Addr(), "", 0, redis.WithPrefix("phone:"), redis.WithMaxLen(2))
	require.NoError(t, j.Open(ctx))
	defer j.Close(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, &storage.Entry{}))
	}

	es, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.Equal(t, uint64(4), es[0].Seq)
	assert.Equal(t, uint64(5), es[1].Seq)

	l, err := mr.List("phone:journal")
	require.NoError(t, err)
	assert.Len(t, l, 2)
}

func TestRedisJournal_Unreachable(t *testing.T) {
	j := redis.New("127.0.0.1:1", "", 0)
	assert.Error(t, j.Open(context.Background()))
}
