package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"keyport.io/keyport/internal/pkg/worker"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher(bcrypt.MinCost, nil)
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "s3cret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "s3cret" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("Hash() = %q, want bcrypt hash", hash)
	}
	if !hasher.Verify(ctx, "s3cret", hash) {
		t.Fatal("Verify(correct) = false")
	}
	if hasher.Verify(ctx, "wrong", hash) {
		t.Fatal("Verify(wrong) = true")
	}
	if hasher.Verify(ctx, "s3cret", "not-a-hash") {
		t.Fatal("Verify(malformed hash) = true")
	}
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher(bcrypt.MinCost, nil)
	a, err := hasher.Hash(context.Background(), "same")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, err := hasher.Hash(context.Background(), "same")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestPasswordHasher_RejectsLongPassword(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher(bcrypt.MinCost, nil)
	_, err := hasher.Hash(context.Background(), strings.Repeat("x", MaxPasswordBytes+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Hash() err = %v, want %v", err, ErrPasswordTooLong)
	}
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	t.Parallel()

	if got := NewPasswordHasher(0, nil).cost; got != DefaultPasswordHashCost {
		t.Fatalf("cost = %d, want %d", got, DefaultPasswordHashCost)
	}
}

func TestPasswordHasher_RunsOnPool(t *testing.T) {
	t.Parallel()

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 2, HashPoolSize: 2})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	hasher := NewPasswordHasher(bcrypt.MinCost, pools.Hash)
	hash, err := hasher.Hash(context.Background(), "pooled")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !hasher.Verify(context.Background(), "pooled", hash) {
		t.Fatal("Verify() = false")
	}
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	t.Parallel()

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, HashPoolSize: 1})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hasher := NewPasswordHasher(bcrypt.MinCost, pools.Hash)
	if _, err := hasher.Hash(ctx, "late"); err == nil {
		t.Fatal("Hash(cancelled) error = nil")
	}
}

func TestPasswordHasher_BusyPoolHonorsDeadline(t *testing.T) {
	t.Parallel()

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, HashPoolSize: 1})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	hasher := NewPasswordHasher(bcrypt.MinCost, pools.Hash)
	hash, err := hasher.Hash(context.Background(), "busy")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	release := make(chan struct{})
	started := make(chan struct{})
	if err := pools.Hash.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if hasher.Verify(ctx, "busy", hash) {
		t.Fatal("Verify() = true without a free worker")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Verify() returned after %v, want it bounded by the deadline", elapsed)
	}
	if _, err := hasher.Hash(ctx, "busy"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Hash() err = %v, want context.DeadlineExceeded", err)
	}
}
