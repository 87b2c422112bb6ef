package service

import (
	"context"
	"errors"
	"testing"
)

func TestLocalSessionLocker(t *testing.T) {
	locker := NewLocalSessionLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Acquire 应成功: %v", err)
	}

	// 同会话二次获取被拒；其他会话不受影响
	if _, err := locker.Acquire(ctx, "sess-1"); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("期望 ErrSessionBusy，实际: %v", err)
	}
	release2, err := locker.Acquire(ctx, "sess-2")
	if err != nil {
		t.Errorf("其他会话应可获取: %v", err)
	} else {
		release2()
	}

	release()
	release3, err := locker.Acquire(ctx, "sess-1")
	if err != nil {
		t.Errorf("释放后应可重新获取: %v", err)
	} else {
		release3()
	}
}
