package batch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hangil-labs/geoconv/internal/addr"
	"github.com/hangil-labs/geoconv/internal/quota"
	"github.com/hangil-labs/geoconv/internal/table"
	"github.com/hangil-labs/geoconv/pkg/vworld"
)

type geocodeCall struct {
	Address string
	Type    vworld.AddressType
}

// stubGeocoder scripts per-call responses and records each dispatch,
// consuming the shared quota counter the way the real client does.
type stubGeocoder struct {
	mu      sync.Mutex
	calls   []geocodeCall
	quota   *quota.Counter
	respond func(address string, typ vworld.AddressType) (vworld.Coordinate, error)
}

func (s *stubGeocoder) Geocode(_ context.Context, address string, typ vworld.AddressType) (vworld.Coordinate, error) {
	if s.quota != nil && !s.quota.Acquire() {
		return vworld.Coordinate{}, vworld.ErrQuotaExhausted
	}
	s.mu.Lock()
	s.calls = append(s.calls, geocodeCall{Address: address, Type: typ})
	s.mu.Unlock()
	return s.respond(address, typ)
}

func (s *stubGeocoder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var (
	notFound = &vworld.Error{Kind: vworld.KindNotFound, ProviderStatus: "NOT_FOUND"}
	authErr  = &vworld.Error{Kind: vworld.KindAuthOrQuota, ProviderStatus: "INVALID_KEY"}
	netErr   = &vworld.Error{Kind: vworld.KindNetwork, ProviderStatus: "TRANSPORT"}
)

func fixedCoord() vworld.Coordinate {
	return vworld.Coordinate{Latitude: 37.5001, Longitude: 127.0368}
}

func newOrchestrator(stub *stubGeocoder, q *quota.Counter, opts ...Option) *Orchestrator {
	stub.quota = q
	return New(addr.NewClassifier(nil), stub, q, opts...)
}

func recordsFor(addresses ...string) []Record {
	t := &table.Table{Header: []string{"주소"}}
	for _, a := range addresses {
		t.Rows = append(t.Rows, []string{a})
	}
	return RecordsFromColumn(t, 0)
}

func TestRun_ThreeRowScenario(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return fixedCoord(), nil
		},
	}
	o := newOrchestrator(stub, quota.New(100))

	outcomes, err := o.Run(context.Background(), recordsFor(
		"서울 강남구 테헤란로 152",
		"",
		"강남구 역삼동 737",
	))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, StatusResolved, outcomes[0].Record.Status)
	assert.Equal(t, addr.TypeRoad, outcomes[0].Record.Type)
	require.NotNil(t, outcomes[0].Coordinate)
	assert.InDelta(t, 37.5001, outcomes[0].Coordinate.Latitude, 1e-9)

	assert.Equal(t, StatusSkipped, outcomes[1].Record.Status)
	assert.Equal(t, addr.TypeUnknown, outcomes[1].Record.Type)
	assert.Nil(t, outcomes[1].Coordinate)

	assert.Equal(t, StatusResolved, outcomes[2].Record.Status)
	assert.Equal(t, addr.TypeParcel, outcomes[2].Record.Type)

	assert.Equal(t, 2, stub.callCount(), "empty row must not reach the network")
	assert.Equal(t, vworld.TypeRoad, stub.calls[0].Type)
	assert.Equal(t, vworld.TypeParcel, stub.calls[1].Type)
}

func TestRun_UnknownFallsBackRoadThenParcel(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, typ vworld.AddressType) (vworld.Coordinate, error) {
			if typ == vworld.TypeRoad {
				return vworld.Coordinate{}, notFound
			}
			return fixedCoord(), nil
		},
	}
	o := newOrchestrator(stub, quota.New(100))

	// No road or parcel markers: classifies UNKNOWN.
	outcomes, err := o.Run(context.Background(), recordsFor("서울 어딘가"))
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, outcomes[0].Record.Status)
	assert.Equal(t, addr.TypeParcel, outcomes[0].Record.Type)
	require.Equal(t, 2, stub.callCount())
	assert.Equal(t, vworld.TypeRoad, stub.calls[0].Type)
	assert.Equal(t, vworld.TypeParcel, stub.calls[1].Type)
}

func TestRun_FallbackOrderConfigurable(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return vworld.Coordinate{}, notFound
		},
	}
	o := newOrchestrator(stub, quota.New(100),
		WithFallbackOrder([]vworld.AddressType{vworld.TypeParcel, vworld.TypeRoad}),
	)

	outcomes, err := o.Run(context.Background(), recordsFor("서울 어딘가"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcomes[0].Record.Status)
	assert.Equal(t, "NOT_FOUND", outcomes[0].ProviderStatus)
	require.Equal(t, 2, stub.callCount())
	assert.Equal(t, vworld.TypeParcel, stub.calls[0].Type)
	assert.Equal(t, vworld.TypeRoad, stub.calls[1].Type)
}

func TestRun_NotFoundTriesOtherTypeOnce(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return vworld.Coordinate{}, notFound
		},
	}
	o := newOrchestrator(stub, quota.New(100))

	outcomes, err := o.Run(context.Background(), recordsFor("강남구 역삼동 737"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcomes[0].Record.Status)
	require.Equal(t, 2, stub.callCount())
	assert.Equal(t, vworld.TypeParcel, stub.calls[0].Type, "classified type goes first")
	assert.Equal(t, vworld.TypeRoad, stub.calls[1].Type)
}

func TestRun_NetworkFailureDoesNotTriggerTypeFallback(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return vworld.Coordinate{}, netErr
		},
	}
	o := newOrchestrator(stub, quota.New(100))

	outcomes, err := o.Run(context.Background(), recordsFor("테헤란로 152"))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, outcomes[0].Record.Status)
	assert.Equal(t, 1, stub.callCount(), "only NOT_FOUND retries with the other type")
}

func TestRun_QuotaExhaustionIsSticky(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return fixedCoord(), nil
		},
	}
	o := newOrchestrator(stub, quota.New(2))

	outcomes, err := o.Run(context.Background(), recordsFor(
		"테헤란로 1", "테헤란로 2", "테헤란로 3", "테헤란로 4",
	))
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.Equal(t, StatusResolved, outcomes[0].Record.Status)
	assert.Equal(t, StatusResolved, outcomes[1].Record.Status)
	assert.Equal(t, StatusSkippedQuota, outcomes[2].Record.Status)
	assert.Equal(t, StatusSkippedQuota, outcomes[3].Record.Status)
	assert.Equal(t, 2, stub.callCount(), "no calls once the quota is gone")
}

func TestRun_FatalRejectionAbortsRemainingRows(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(address string, _ vworld.AddressType) (vworld.Coordinate, error) {
			if address == "테헤란로 2" {
				return vworld.Coordinate{}, authErr
			}
			return fixedCoord(), nil
		},
	}
	o := newOrchestrator(stub, quota.New(100))

	outcomes, err := o.Run(context.Background(), recordsFor(
		"테헤란로 1", "테헤란로 2", "테헤란로 3", "테헤란로 4",
	))
	require.Error(t, err)
	assert.True(t, vworld.IsFatal(err), "fatal cause surfaces to the caller")
	require.Len(t, outcomes, 4, "outcomes stay complete despite the abort")

	assert.Equal(t, StatusResolved, outcomes[0].Record.Status)
	assert.Equal(t, StatusFailed, outcomes[1].Record.Status)
	assert.Equal(t, "INVALID_KEY", outcomes[1].ProviderStatus)
	assert.Equal(t, StatusSkippedQuota, outcomes[2].Record.Status)
	assert.Equal(t, StatusSkippedQuota, outcomes[3].Record.Status)
	assert.Equal(t, 2, stub.callCount(), "no dispatch after the rejection")
}

func TestRun_RowLimitSkipsWithoutNetwork(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(_ string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return fixedCoord(), nil
		},
	}
	o := newOrchestrator(stub, quota.New(100), WithRowLimit(1))

	outcomes, err := o.Run(context.Background(), recordsFor("테헤란로 1", "테헤란로 2", "테헤란로 3"))
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, outcomes[0].Record.Status)
	assert.Equal(t, StatusSkipped, outcomes[1].Record.Status)
	assert.Equal(t, StatusSkipped, outcomes[2].Record.Status)
	assert.Equal(t, 1, stub.callCount())
}

func TestRun_ConcurrentPreservesRowOrder(t *testing.T) {
	stub := &stubGeocoder{
		respond: func(address string, _ vworld.AddressType) (vworld.Coordinate, error) {
			return fixedCoord(), nil
		},
	}
	var mu sync.Mutex
	var seen int
	o := newOrchestrator(stub, quota.New(100),
		WithConcurrency(4),
		WithProgress(func(Outcome) {
			mu.Lock()
			seen++
			mu.Unlock()
		}),
	)

	records := recordsFor(
		"테헤란로 1", "테헤란로 2", "테헤란로 3", "테헤란로 4",
		"테헤란로 5", "테헤란로 6", "테헤란로 7", "테헤란로 8",
	)
	outcomes, err := o.Run(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, outcomes, len(records))

	for i, out := range outcomes {
		assert.Equal(t, i, out.Record.Index, "outcome %d out of order", i)
		assert.Equal(t, StatusResolved, out.Record.Status)
	}
	assert.Equal(t, len(records), seen, "one progress callback per record")
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Record: Record{Status: StatusResolved}},
		{Record: Record{Status: StatusResolved}},
		{Record: Record{Status: StatusFailed}},
		{Record: Record{Status: StatusSkipped}},
		{Record: Record{Status: StatusSkippedQuota}},
	}
	s := Summarize(outcomes)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Resolved)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.SkippedQuota)
	assert.InDelta(t, 0.4, s.SuccessRate(), 1e-9)
}
