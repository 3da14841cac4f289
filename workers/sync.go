package workers

import (
	"time"

	"crypto-mining-client/services"
)

// Standing refresh intervals. Mining progress accrues continuously
// server-side so it carries the tightest timer; deposits only need to
// surface admin confirmations.
const (
	MiningPollInterval   = 5 * time.Second
	DepositsPollInterval = 15 * time.Second
)

// RegisterEntityPolls wires the two standing cache refreshes onto the
// poller. Profile and transfers refetch on demand and after mutations,
// never on a timer.
func RegisterEntityPolls(p *Poller, mining *services.MiningService, deposits *services.DepositService) error {
	if err := p.Add("mining-progress", MiningPollInterval, mining.Poll); err != nil {
		return err
	}
	return p.Add("deposits", DepositsPollInterval, deposits.Poll)
}
