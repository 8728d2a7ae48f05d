package contract

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const feeDenominator = 10_000

// rankParticipants derives a deterministic permutation of entry indexes from
// the pool's random value. Each participant scores
// Keccak256(randomValue || entryIndex); rank 1 is the lowest score. The
// ranking is reproducible off-chain from the seed alone.
func rankParticipants(seed *uint256.Int, count int) []uint32 {
	seedBytes := seed.Bytes32()

	scores := make([][]byte, count)
	ranking := make([]uint32, count)
	for i := 0; i < count; i++ {
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], uint32(i))
		scores[i] = crypto.Keccak256(seedBytes[:], idx[:])
		ranking[i] = uint32(i)
	}

	sort.SliceStable(ranking, func(a, b int) bool {
		return bytes.Compare(scores[ranking[a]], scores[ranking[b]]) < 0
	})
	return ranking
}

// rewardCurve computes the decreasing payout curve over a net pot:
// step = pot/N^2, base = (pot + step*N(N-1)/2) / N, reward(k) = base-(k-1)*step.
// The integer-division residual goes to rank 1, so the curve always sums to
// the pot exactly. Strict decrease requires pot >= N^2; below that the step
// truncates to zero and ranks past the first collapse to equal rewards, which
// with nano-denominated stakes needs a pot under N^2 nano.
func rewardCurve(pot *uint256.Int, count int) []*uint256.Int {
	n := uint256.NewInt(uint64(count))
	nSquared := new(uint256.Int).Mul(n, n)
	step := new(uint256.Int).Div(pot, nSquared)

	// triangle = N*(N-1)/2
	triangle := new(uint256.Int).Mul(n, uint256.NewInt(uint64(count-1)))
	triangle.Div(triangle, uint256.NewInt(2))

	base := new(uint256.Int).Mul(step, triangle)
	base.Add(base, pot)
	base.Div(base, n)

	rewards := make([]*uint256.Int, count)
	sum := uint256.NewInt(0)
	for k := 0; k < count; k++ {
		reward := new(uint256.Int).Mul(step, uint256.NewInt(uint64(k)))
		reward.Sub(base, reward)
		rewards[k] = reward
		sum.Add(sum, reward)
	}

	residual := new(uint256.Int).Sub(pot, sum)
	rewards[0] = new(uint256.Int).Add(rewards[0], residual)
	return rewards
}

// distributeRewards finalizes a Closed pool: persists the ranking and curve,
// zeroes the pot, and emits one independent transfer per participant. The
// protocol fee share of the pot stays behind as uncommitted balance.
func (c *Contract) distributeRewards(pool *Pool) []Outbound {
	fee := new(uint256.Int).Mul(pool.Pot, uint256.NewInt(uint64(c.state.FeeBps)))
	fee.Div(fee, uint256.NewInt(feeDenominator))
	net := new(uint256.Int).Sub(pool.Pot, fee)

	pool.Ranking = rankParticipants(pool.RandomValue, len(pool.Participants))
	pool.Rewards = rewardCurve(net, len(pool.Participants))

	outs := make([]Outbound, 0, len(pool.Ranking))
	for rank, entryIndex := range pool.Ranking {
		winner := pool.Participants[entryIndex]
		outs = append(outs, Outbound{To: winner.Staker, Value: pool.Rewards[rank].Clone()})
	}

	c.state.Balance = new(uint256.Int).Sub(c.state.Balance, net)
	pool.Pot = uint256.NewInt(0)

	c.logger.Info("rewards distributed",
		zap.Uint32("pool_id", pool.ID),
		zap.Int("winners", len(outs)),
		zap.String("net_pot", net.Dec()),
		zap.String("fee", fee.Dec()),
	)
	return outs
}
