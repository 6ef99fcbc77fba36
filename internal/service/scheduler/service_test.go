package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
)

// memStore keeps messages in a map and implements the claim primitive
// with the same compare-and-set semantics as the SQL conditional update.
type memStore struct {
	mu   sync.Mutex
	msgs map[string]model.Message
}

func newMemStore(msgs ...model.Message) *memStore {
	m := &memStore{msgs: make(map[string]model.Message)}
	for _, msg := range msgs {
		m.msgs[msg.ID] = msg
	}
	return m
}

func (s *memStore) DueScheduled(_ context.Context, now time.Time, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Message{}
	for _, m := range s.msgs {
		if m.Status == model.StatusScheduled && m.ScheduledFor.Valid && !m.ScheduledFor.Time.After(now) {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) ListScheduledAfter(_ context.Context, now time.Time) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Message{}
	for _, m := range s.msgs {
		if m.Status == model.StatusScheduled && m.ScheduledFor.Valid && m.ScheduledFor.Time.After(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) ClaimScheduled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.Status != model.StatusScheduled {
		return false, nil
	}
	m.Status = model.StatusSending
	s.msgs[id] = m
	return true, nil
}

func (s *memStore) CancelScheduled(_ context.Context, m model.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.msgs[m.ID]
	if !ok || cur.Status != model.StatusScheduled {
		return false, nil
	}
	cur.Status = model.StatusCancelled
	s.msgs[m.ID] = cur
	return true, nil
}

func (s *memStore) GetMessage(_ context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

type countingDeliverer struct {
	mu        sync.Mutex
	delivered map[string]int
	failOn    string
}

func (d *countingDeliverer) Deliver(_ context.Context, m model.Message) (model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.delivered == nil {
		d.delivered = make(map[string]int)
	}
	d.delivered[m.ID]++
	if m.ID == d.failOn {
		return model.Message{}, errors.New("store down")
	}
	return m, nil
}

func scheduledMsg(id string, at time.Time) model.Message {
	m := model.Message{
		ID:        id,
		ContactID: "c1",
		Channel:   model.ChannelSMS,
		Direction: model.DirectionOutbound,
		Content:   "later",
		Status:    model.StatusScheduled,
	}
	m.ScheduledFor.Time = at
	m.ScheduledFor.Valid = true
	return m
}

func TestTickProcessesDue(t *testing.T) {
	now := time.Now()
	store := newMemStore(
		scheduledMsg("due1", now.Add(-time.Minute)),
		scheduledMsg("due2", now.Add(-time.Second)),
		scheduledMsg("future", now.Add(time.Hour)),
	)
	del := &countingDeliverer{}
	svc := New(store, del, 100, nil)

	processed, err := svc.Tick(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	if del.delivered["future"] != 0 {
		t.Error("future message must not be delivered")
	}
	if del.delivered["due1"] != 1 || del.delivered["due2"] != 1 {
		t.Errorf("delivered = %v", del.delivered)
	}
}

func TestTickConcurrentAtMostOnce(t *testing.T) {
	now := time.Now()
	msgs := []model.Message{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		msgs = append(msgs, scheduledMsg(id, now.Add(-time.Minute)))
	}
	store := newMemStore(msgs...)
	del := &countingDeliverer{}
	svc := New(store, del, 100, nil)

	const ticks = 8
	var wg sync.WaitGroup
	total := make([]int, ticks)
	for i := 0; i < ticks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := svc.Tick(context.Background(), now)
			if err != nil {
				t.Error(err)
			}
			total[i] = n
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, n := range total {
		sum += n
	}
	if sum != len(msgs) {
		t.Errorf("total claimed = %d, want %d", sum, len(msgs))
	}
	for id, n := range del.delivered {
		if n != 1 {
			t.Errorf("message %s delivered %d times", id, n)
		}
	}
}

func TestTickIsolatesDeliverFailure(t *testing.T) {
	now := time.Now()
	store := newMemStore(
		scheduledMsg("bad", now.Add(-time.Minute)),
		scheduledMsg("good", now.Add(-time.Minute)),
	)
	del := &countingDeliverer{failOn: "bad"}
	svc := New(store, del, 100, nil)

	processed, err := svc.Tick(context.Background(), now)
	if err != nil {
		t.Fatal(err)
	}
	// both were claimed; the failing one does not abort the batch
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	if del.delivered["good"] != 1 {
		t.Error("good message was not delivered")
	}
}

func TestCancelScheduled(t *testing.T) {
	now := time.Now()
	store := newMemStore(scheduledMsg("m1", now.Add(time.Hour)))
	svc := New(store, &countingDeliverer{}, 100, nil)

	msg, err := svc.Cancel(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusCancelled {
		t.Errorf("status = %s", msg.Status)
	}

	// second cancel: no longer scheduled
	if _, err := svc.Cancel(context.Background(), "m1"); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("err = %v, want ErrNotScheduled", err)
	}

	if _, err := svc.Cancel(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelClaimedRejected(t *testing.T) {
	now := time.Now()
	store := newMemStore(scheduledMsg("m1", now.Add(-time.Minute)))
	svc := New(store, &countingDeliverer{}, 100, nil)

	if _, err := svc.Tick(context.Background(), now); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Cancel(context.Background(), "m1"); !errors.Is(err, ErrNotScheduled) {
		t.Errorf("err = %v, want ErrNotScheduled", err)
	}
}
