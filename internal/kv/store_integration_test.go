//go:build integration

package kv_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/rental-listing/internal/kv"
)

// StoreContractSuite runs the same behaviour checks against a real backend.
// Backends are provided by the environment (REDIS_URL, MYSQL_DSN).
type StoreContractSuite struct {
	suite.Suite
	store kv.Store
	ns    string
}

func TestRedisStoreContract(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	suite.Run(t, &StoreContractSuite{store: kv.NewRedis(client, "test:"+uuid.NewString()+":")})
}

func TestMySQLStoreContract(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	if _, err := db.Exec(kv.MySQLSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	suite.Run(t, &StoreContractSuite{store: kv.NewMySQL(db)})
}

func (s *StoreContractSuite) SetupTest() {
	s.ns = uuid.NewString()
}

func (s *StoreContractSuite) key(name string) string {
	return fmt.Sprintf("%s:%s", s.ns, name)
}

func (s *StoreContractSuite) TestRoundTrip() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, s.key("missing"))
	s.Require().ErrorIs(err, kv.ErrNotFound)

	s.Require().NoError(s.store.Set(ctx, s.key("a"), []byte(`{"a":1}`)))
	got, err := s.store.Get(ctx, s.key("a"))
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(got))

	vals, err := s.store.MGet(ctx, []string{s.key("a"), s.key("missing")})
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(vals[0]))
	s.Nil(vals[1])

	s.Require().NoError(s.store.Delete(ctx, s.key("a")))
	_, err = s.store.Get(ctx, s.key("a"))
	s.ErrorIs(err, kv.ErrNotFound)
}

func (s *StoreContractSuite) TestCompareAndSwapUnderContention() {
	ctx := context.Background()
	k := s.key("cas")
	s.Require().NoError(s.store.CompareAndSwap(ctx, k, nil, []byte(`0`)))

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.CompareAndSwap(ctx, k, []byte(`0`), []byte(fmt.Sprint(i+1)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if err == kv.ErrConflict {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes, "exactly one swap should win")
	s.Equal(goroutines-1, conflicts)
}

func (s *StoreContractSuite) TestConcurrentCreatesOnAbsentKey() {
	ctx := context.Background()
	k := s.key("fresh")

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.CompareAndSwap(ctx, k, nil, []byte(fmt.Sprint(i)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if err == kv.ErrConflict {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes, "exactly one create should win")
	s.Equal(goroutines-1, conflicts, "losers see ErrConflict, never a driver error")
}

func (s *StoreContractSuite) TestPutIndexedConcurrentAppends() {
	ctx := context.Background()
	idx := s.key("idx")

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			s.NoError(s.store.PutIndexed(ctx, s.key("rec:"+id), []byte(`{}`), id, idx))
		}(i)
	}
	wg.Wait()

	ids, err := kv.GetIndex(ctx, s.store, idx)
	s.Require().NoError(err)
	s.Len(ids, writers)

	s.Require().NoError(s.store.PutIndexed(ctx, s.key("rec:p0"), []byte(`{}`), "p0", idx))
	ids, err = kv.GetIndex(ctx, s.store, idx)
	s.Require().NoError(err)
	s.Len(ids, writers, "re-indexing must not duplicate")
}
