package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSyncedAt_NeverSynced(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "matchbot:ref:synced_at")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	ts, err := s.SyncedAt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("got %v, want zero time", ts)
	}
}

func TestSyncedAt_Parses(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "matchbot:ref:synced_at")).
		Return(mock.Result(mock.RedisString("2026-08-30T06:00:00Z")))

	s := NewStoreForTest(c)
	ts, err := s.SyncedAt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("got %v, want %v", ts, want)
	}
}

func TestLoad_BadColumns(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "matchbot:ref:columns")).
		Return(mock.Result(mock.RedisString("not json")))

	s := NewStoreForTest(c)
	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRowKeyOrder(t *testing.T) {
	s := NewStoreForTest(nil)
	if a, b := s.rowKey(2), s.rowKey(10); a >= b {
		t.Errorf("key order broken: %q >= %q", a, b)
	}
}
