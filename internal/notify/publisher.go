// Package notify fans job lifecycle transitions out to the NATS bus.
package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/recaplabs/recapd/internal/bus"
	"github.com/recaplabs/recapd/internal/job"
	"github.com/recaplabs/recapd/internal/protocol"
)

// Publisher serializes job snapshots into protocol events and publishes
// them on the state-specific subject. Publish failures are logged and
// dropped; notifications are best effort and never block the pipeline.
type Publisher struct {
	client *bus.Client
	log    *slog.Logger
}

func NewPublisher(client *bus.Client, log *slog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

func (p *Publisher) PublishJobEvent(j job.Job) {
	ev := protocol.FromJob(j, "")
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("encode job event", slog.String("job_id", j.ID), slog.String("error", err.Error()))
		return
	}
	subject := protocol.SubjectFor(j.State)
	if err := p.client.Publish(subject, payload); err != nil {
		p.log.Warn("publish job event",
			slog.String("subject", subject),
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()))
	}
}

func (p *Publisher) Healthy() bool {
	return p.client.Healthy()
}
