package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wordpot/round-engine/internal/types"
)

// clusterWindow is the bucket width for correlated-activity detection:
// two accounts repeatedly acting within the same bucket look like one
// operator.
const clusterWindow = 5 * time.Second

// minSharedBuckets is how many co-occurring activity buckets two
// accounts need before they are linked.
const minSharedBuckets = 5

// WalletCluster is a group of accounts with correlated activity timing.
type WalletCluster struct {
	Players       []string `json:"players"`
	SharedBuckets int      `json:"shared_buckets"`
}

// walletClustering detects groups of accounts whose guess and purchase
// timing is correlated enough to suggest one actor controlling many
// identities. Accounts are linked when they act inside the same small
// time bucket often enough; linked pairs are merged union-find style.
func (r *Runner) walletClustering(ctx context.Context, opts Options) (types.SimulationStatus, string, any, error) {
	rounds, err := r.store.ListResolvedRounds(opts.LookbackRounds)
	if err != nil {
		return types.SimStatusError, "", nil, err
	}

	// bucket -> set of players active in it
	buckets := make(map[int64]map[string]bool)
	truncated := false
	for _, round := range rounds {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		guesses, err := r.store.ListGuesses(round.ID)
		if err != nil {
			return types.SimStatusError, "", nil, err
		}
		for _, g := range guesses {
			addBucket(buckets, g.CreatedAt, g.PlayerID)
		}
		purchases, err := r.store.ListPurchases(round.ID)
		if err != nil {
			return types.SimStatusError, "", nil, err
		}
		for _, p := range purchases {
			addBucket(buckets, p.CreatedAt, p.PlayerID)
		}
	}

	// count co-occurrences per pair
	type pair struct{ a, b string }
	shared := make(map[pair]int)
	for _, players := range buckets {
		ids := make([]string, 0, len(players))
		for id := range players {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				shared[pair{ids[i], ids[j]}]++
			}
		}
	}

	// union-find over linked pairs
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" || parent[x] == x {
			parent[x] = x
			return x
		}
		root := find(parent[x])
		parent[x] = root
		return root
	}
	pairStrength := make(map[string]int)
	for pr, n := range shared {
		if n < minSharedBuckets {
			continue
		}
		ra, rb := find(pr.a), find(pr.b)
		if ra != rb {
			parent[rb] = ra
		}
		root := find(pr.a)
		if n > pairStrength[root] {
			pairStrength[root] = n
		}
	}

	groups := make(map[string][]string)
	for x := range parent {
		root := find(x)
		groups[root] = append(groups[root], x)
	}
	var clusters []WalletCluster
	for root, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		clusters = append(clusters, WalletCluster{
			Players:       members,
			SharedBuckets: pairStrength[root],
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].SharedBuckets > clusters[j].SharedBuckets
	})

	status := types.SimStatusSuccess
	summary := "no correlated account activity detected"
	if len(clusters) > 0 {
		status = types.SimStatusWarning
		summary = fmt.Sprintf("%d cluster(s) of correlated accounts detected", len(clusters))
	}
	if truncated {
		summary += " (partial: time budget hit)"
	}
	return status, summary, clusters, nil
}

func addBucket(buckets map[int64]map[string]bool, t time.Time, player string) {
	b := t.UnixNano() / int64(clusterWindow)
	if buckets[b] == nil {
		buckets[b] = make(map[string]bool)
	}
	buckets[b][player] = true
}
