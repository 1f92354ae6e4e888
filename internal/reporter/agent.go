package reporter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Agent periodically samples the host and reports to the service
type Agent struct {
	serial   string
	interval time.Duration
	sampler  Sampler
	client   Client
	logger   *zap.Logger
}

// NewAgent creates an agent reporting as the device with the given serial
func NewAgent(serial string, interval time.Duration, sampler Sampler, client Client, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		serial:   serial,
		interval: interval,
		sampler:  sampler,
		client:   client,
		logger:   logger.With(zap.String("serial_number", serial)),
	}
}

// Run reports once immediately and then every interval until ctx is done.
// A failed report is logged and does not stop the loop.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.ReportOnce(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("Report failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			a.logger.Info("Reporter stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ReportOnce takes one sample and submits it
func (a *Agent) ReportOnce(ctx context.Context) error {
	sample, err := a.sampler.Sample(ctx)
	if err != nil {
		return err
	}

	if err := a.client.Report(ctx, Report{
		SerialNumber: a.serial,
		CPU:          sample.CPU,
		Memory:       sample.Memory,
	}); err != nil {
		return err
	}

	a.logger.Debug("Report accepted", zap.Int("cpu", sample.CPU), zap.Int("memory", sample.Memory))
	return nil
}
