package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
)

const testContract = "CCONTRACT"

type fakeSource struct {
	mu      sync.Mutex
	latest  uint32
	batches [][]rpc.Event
	err     error
	starts  []uint32
}

func (f *fakeSource) GetEvents(_ context.Context, startLedger uint32, _ string, _ int) ([]rpc.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, startLedger)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeSource) LatestLedger(context.Context) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func eventAt(t *testing.T, ledger uint32, name string) rpc.Event {
	t.Helper()
	topic, err := scval.EncodeBase64(scval.Symbol(name))
	require.NoError(t, err)
	value, err := scval.EncodeBase64(scval.Vec(scval.U32(1), scval.I128(5_0000000)))
	require.NoError(t, err)
	return rpc.Event{Type: "contract", Ledger: ledger, Topics: []string{topic}, Value: value}
}

func TestFirstPollStartsLookbackBehindTip(t *testing.T) {
	source := &fakeSource{latest: 5000}
	p := New(source, testContract)

	p.pollOnce(context.Background(), func([]ContractEvent) {})

	require.Len(t, source.starts, 1)
	assert.Equal(t, uint32(4000), source.starts[0])
}

func TestFirstPollClampsShortChains(t *testing.T) {
	source := &fakeSource{latest: 500}
	p := New(source, testContract)

	p.pollOnce(context.Background(), func([]ContractEvent) {})

	require.Len(t, source.starts, 1)
	assert.Equal(t, uint32(1), source.starts[0])
}

func TestCursorAdvancesPastNewestEvent(t *testing.T) {
	source := &fakeSource{
		latest: 5000,
		batches: [][]rpc.Event{
			{eventAt(t, 4001, "create"), eventAt(t, 4005, "donate")},
			{eventAt(t, 4010, "claim")},
		},
	}
	p := New(source, testContract)

	var delivered []ContractEvent
	handler := func(batch []ContractEvent) { delivered = append(delivered, batch...) }
	ctx := context.Background()

	p.pollOnce(ctx, handler)
	p.pollOnce(ctx, handler)
	p.pollOnce(ctx, handler)

	require.Len(t, source.starts, 3)
	assert.Equal(t, uint32(4000), source.starts[0])
	assert.Equal(t, uint32(4006), source.starts[1], "one past the newest delivered ledger")
	assert.Equal(t, uint32(4011), source.starts[2])

	require.Len(t, delivered, 3)
	assert.Equal(t, "create", delivered[0].Type)
	assert.Equal(t, "donate", delivered[1].Type)
	assert.Equal(t, "claim", delivered[2].Type)
}

func TestEmptyBatchKeepsCursor(t *testing.T) {
	source := &fakeSource{latest: 5000}
	p := New(source, testContract)

	calls := 0
	handler := func([]ContractEvent) { calls++ }
	ctx := context.Background()

	p.pollOnce(ctx, handler)
	p.pollOnce(ctx, handler)

	require.Len(t, source.starts, 2)
	assert.Equal(t, source.starts[0], source.starts[1], "empty polls must not move the cursor")
	assert.Zero(t, calls, "no handler call for an empty batch")
}

func TestFetchErrorKeepsCursor(t *testing.T) {
	source := &fakeSource{latest: 5000, err: errors.New("boom")}
	p := New(source, testContract)

	calls := 0
	ctx := context.Background()
	p.pollOnce(ctx, func([]ContractEvent) { calls++ })

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()
	p.pollOnce(ctx, func([]ContractEvent) { calls++ })

	require.Len(t, source.starts, 2)
	assert.Equal(t, source.starts[0], source.starts[1], "errors must not move the cursor")
	assert.Zero(t, calls)
}

func TestDecodeBestEffort(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := New(&fakeSource{}, testContract, WithClock(func() time.Time { return fixed }))

	ev := eventAt(t, 4001, "donate")
	decoded := p.decode(ev)
	assert.Equal(t, "donate", decoded.Type)
	assert.Equal(t, uint32(4001), decoded.Ledger)
	assert.Equal(t, fixed, decoded.Timestamp)
	data, ok := decoded.Data.([]any)
	require.True(t, ok)
	assert.Equal(t, uint32(1), data[0])
	assert.Equal(t, int64(5_0000000), data[1])

	garbage := rpc.Event{Ledger: 9, Topics: []string{"!!!"}, Value: "!!!"}
	decoded = p.decode(garbage)
	assert.Equal(t, "unknown", decoded.Type)
	assert.Nil(t, decoded.Data)
}

func TestStartStop(t *testing.T) {
	source := &fakeSource{
		latest: 5000,
		batches: [][]rpc.Event{
			{eventAt(t, 4001, "create")},
		},
	}
	p := New(source, testContract, WithInterval(time.Millisecond))

	var mu sync.Mutex
	calls := 0
	stop := p.Start(context.Background(), func([]ContractEvent) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, time.Second, time.Millisecond)

	stop()
	mu.Lock()
	after := calls
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, calls, "no handler calls after stop returns")
	mu.Unlock()
}
