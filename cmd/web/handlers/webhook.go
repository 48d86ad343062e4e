package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"coinmachine/internal/webhook"
)

const maxWebhookBytes = 1 << 20

type WebhookIngestorContract interface {
	Ingest(ctx context.Context, raw []byte, timestamp, signature string) (webhook.Result, error)
}

type DeferredPublisherContract interface {
	Defer(ctx context.Context) (context.Context, func() []error)
}

type Webhook struct {
	ingestor WebhookIngestorContract
	bus      DeferredPublisherContract
}

func NewWebhook(ingestor WebhookIngestorContract, bus DeferredPublisherContract) *Webhook {
	return &Webhook{ingestor: ingestor, bus: bus}
}

// Receive acknowledges the provider before any follow-up subscriber runs: the
// store write happens inline, bus delivery after the response is flushed.
func (h *Webhook) Receive(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		log.Printf("layer=handler component=webhook method=Receive err=%v", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request", "message": "unreadable body"})
		return
	}

	ctx, flush := h.bus.Defer(r.Context())
	defer func() {
		for _, err := range flush() {
			log.Printf("layer=handler component=webhook method=Receive step=flush err=%v", err)
		}
	}()

	res, err := h.ingestor.Ingest(ctx, raw, r.Header.Get(webhook.HeaderTimestamp), r.Header.Get(webhook.HeaderSignature))
	if err != nil {
		log.Printf("layer=handler component=webhook method=Receive txnid=%s err=%v", res.TxnID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": res.Outcome, "txnid": res.TxnID})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
