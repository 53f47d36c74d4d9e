package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisStoreSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	manager *RedisManager
	ctx     context.Context
}

func (s *RedisStoreSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.manager = NewRedisManager(s.client, RedisOptions{TTL: time.Minute})
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) TearDownTest() {
	s.client.Close()
}

func (s *RedisStoreSuite) TestSetGetRemove() {
	store := s.manager.Store("abc")

	s.Require().NoError(store.Set(s.ctx, KeyState, "nonce"))
	v, ok, err := store.Get(s.ctx, KeyState)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("nonce", v)

	s.Equal(DefaultRedisKeyPrefix+"abc", store.Key())
	s.Equal(time.Minute, s.mr.TTL(store.Key()))

	s.Require().NoError(store.Remove(s.ctx, KeyState))
	_, ok, err = store.Get(s.ctx, KeyState)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestExpiry() {
	store := s.manager.Store("expiring")
	s.Require().NoError(store.Set(s.ctx, KeyCode, "c"))

	s.mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(s.ctx, KeyCode)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RedisStoreSuite) TestRecordAcrossStores() {
	first := s.manager.Store("shared")
	s.Require().NoError(SetAll(s.ctx, first, map[string]string{
		KeyCodeVerifier: "v",
		KeyCode:         "c",
		KeyState:        "s",
	}))

	// A fresh store for the same id sees the same record.
	rec, err := Load(s.ctx, s.manager.Store("shared"))
	s.Require().NoError(err)
	s.True(rec.HasPendingExchange(true))

	s.Require().NoError(Clear(s.ctx, first))
	s.False(s.mr.Exists(first.Key()), "clear should drop the whole hash")
}

func (s *RedisStoreSuite) TestClearFailure() {
	store := s.manager.Store("down")
	s.Require().NoError(store.Set(s.ctx, KeyCode, "c"))

	s.mr.Close()
	s.Error(Clear(s.ctx, store))
}

func (s *RedisStoreSuite) TestOpenIssuesSessionCookie() {
	rec := httptest.NewRecorder()
	store, err := s.manager.Open(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	s.Require().NoError(err)
	s.Require().NoError(store.Set(s.ctx, KeyState, "x"))

	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(DefaultSessionIDCookie, cookies[0].Name)
	s.True(cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	again, err := s.manager.Open(rec2, req)
	s.Require().NoError(err)
	s.Empty(rec2.Result().Cookies(), "existing id must be reused")

	v, ok, err := again.Get(s.ctx, KeyState)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("x", v)
}

func (s *RedisStoreSuite) TestOpenRejectsForgedID() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionIDCookie, Value: "../../etc"})
	rec := httptest.NewRecorder()

	store, err := s.manager.Open(rec, req)
	s.Require().NoError(err)
	s.NotEqual(DefaultRedisKeyPrefix+"../../etc", store.(*RedisStore).Key())
	s.Len(rec.Result().Cookies(), 1)
}

func (s *RedisStoreSuite) TestPingAndBackendFailure() {
	s.NoError(s.manager.Ping(s.ctx))

	s.mr.Close()
	_, _, err := s.manager.Store("x").Get(s.ctx, KeyState)
	s.Error(err)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}
