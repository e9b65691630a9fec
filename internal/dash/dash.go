package dash

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/you/arb-scan/internal/graph"
	"github.com/you/arb-scan/internal/httpserve"
	"github.com/you/arb-scan/internal/types"
	"go.uber.org/zap"
)

// EdgeRow is one live edge as shown on the status board.
type EdgeRow struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Rate   float64 `json:"rate"`
	Weight float64 `json:"weight"`
	AgeMs  int64   `json:"ageMs"`
	TS     int64   `json:"ts"`
}

// OppRow is one dispatched opportunity.
type OppRow struct {
	Cycle      string   `json:"cycle"`
	Assets     []string `json:"assets"`
	NetYield   float64  `json:"netYield"`
	ZScore     float64  `json:"zScore"`
	Confidence float64  `json:"confidence"`
	TS         int64    `json:"ts"`
}

const oppHistory = 50

// Store keeps the latest snapshot rows and a short opportunity history for
// the JSON endpoints. Updated once per pass by the engine.
type Store struct {
	mu    sync.RWMutex
	edges []EdgeRow
	opps  []OppRow
}

func NewStore() *Store { return &Store{} }

func (s *Store) UpdateEdges(snap *graph.Snapshot, now time.Time) {
	rows := make([]EdgeRow, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		rows = append(rows, EdgeRow{
			From:   e.From,
			To:     e.To,
			Rate:   e.Rate,
			Weight: e.Weight,
			AgeMs:  now.Sub(e.Ts).Milliseconds(),
			TS:     e.Ts.UnixMilli(),
		})
	}
	s.mu.Lock()
	s.edges = rows
	s.mu.Unlock()
}

func (s *Store) RecordOpportunities(opps []types.Opportunity) {
	if len(opps) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range opps {
		s.opps = append(s.opps, OppRow{
			Cycle:      o.Identity,
			Assets:     o.Cycle.Assets(),
			NetYield:   o.NetYield,
			ZScore:     o.ZScore,
			Confidence: o.Confidence,
			TS:         o.Ts.UnixMilli(),
		})
	}
	if len(s.opps) > oppHistory {
		s.opps = s.opps[len(s.opps)-oppHistory:]
	}
}

func (s *Store) snapshotRows() ([]EdgeRow, []OppRow) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := make([]EdgeRow, len(s.edges))
	copy(edges, s.edges)
	opps := make([]OppRow, len(s.opps))
	copy(opps, s.opps)
	return edges, opps
}

// Serve exposes /api/edges and /api/opps. Disabled on an empty addr.
func (s *Store) Serve(ctx context.Context, addr string, log *zap.Logger) {
	if addr == "" {
		log.Info("dash disabled: empty addr")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/edges", func(w http.ResponseWriter, _ *http.Request) {
		edges, _ := s.snapshotRows()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(edges)
	})
	mux.HandleFunc("/api/opps", func(w http.ResponseWriter, _ *http.Request) {
		_, opps := s.snapshotRows()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(opps)
	})

	httpserve.Run(ctx, &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}, "dash", log)
}
