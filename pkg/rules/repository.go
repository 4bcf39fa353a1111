package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden-hq/warden/pkg/ledger"
)

// snapshotPayload is the audit payload written when a snapshot is created.
type snapshotPayload struct {
	Version   int64  `json:"version"`
	RuleCount int    `json:"rule_count"`
	Note      string `json:"note,omitempty"`
}

// duplicatePayload is the audit payload for a skipped duplicate candidate.
type duplicatePayload struct {
	Fingerprint string `json:"fingerprint"`
	Kind        Kind   `json:"kind"`
	Field       string `json:"field"`
}

// ingestPayload is the audit payload summarizing one ingest call.
type ingestPayload struct {
	Accepted        int   `json:"accepted"`
	Duplicates      int   `json:"duplicates"`
	Rejected        int   `json:"rejected"`
	SnapshotVersion int64 `json:"snapshot_version"`
}

// Repository owns the live rule set and its snapshot history. All mutations
// flow through Ingest, which serializes writers; reads go straight to the
// storage layer and may proceed concurrently.
type Repository struct {
	storage Storage
	ledger  *ledger.Ledger
	logger  *slog.Logger

	mu sync.Mutex // serializes mutations of the live set
}

// NewRepository creates a rule repository over the given storage backend.
// Every mutation is mirrored into the audit ledger.
func NewRepository(storage Storage, auditLedger *ledger.Ledger) *Repository {
	return &Repository{
		storage: storage,
		ledger:  auditLedger,
		logger:  slog.Default().With("component", "rules.repository"),
	}
}

// Ingest validates, fingerprints, and deduplicates a batch of candidate
// rules. Before the live set is touched, exactly one snapshot of the
// pre-mutation set is written; an empty batch writes nothing at all. Invalid
// candidates are rejected per-rule with a named field error and duplicates
// are skipped as informational, so a partially bad batch still lands its
// valid rules. Only storage faults and ledger write faults abort the call.
func (r *Repository) Ingest(ctx context.Context, candidates []Rule) (*IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &IngestResult{}
	if len(candidates) == 0 {
		return result, nil
	}

	version, err := r.snapshotCurrentSet(ctx, fmt.Sprintf("pre-ingest of %d candidates", len(candidates)))
	if err != nil {
		return nil, err
	}
	result.SnapshotVersion = version

	seen := make(map[string]bool) // fingerprints accepted earlier in this batch
	for i := range candidates {
		rule := candidates[i] // copy so the caller's slice is never mutated

		if ruleErr := validateCandidate(i, &rule); ruleErr != nil {
			result.Rejected = append(result.Rejected, ruleErr)
			r.logger.Warn("rule rejected",
				"index", i, "rule_id", rule.ID, "field", ruleErr.Field, "reason", ruleErr.Message)
			if _, err := r.ledger.Append(ctx, ledger.KindRuleRejected, rule.ID, ruleErr); err != nil {
				return nil, err
			}
			continue
		}

		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		rule.Fingerprint = Fingerprint(rule.Kind, rule.Field, rule.Operator, rule.Threshold)

		duplicate := seen[rule.Fingerprint]
		if !duplicate {
			duplicate, err = r.storage.HasFingerprint(ctx, rule.Fingerprint)
			if err != nil {
				return nil, err
			}
		}
		if duplicate {
			result.Duplicates = append(result.Duplicates, rule)
			r.logger.Info("duplicate rule skipped", "rule_id", rule.ID, "fingerprint", rule.Fingerprint)
			if _, err := r.ledger.Append(ctx, ledger.KindDuplicateRule, rule.ID, duplicatePayload{
				Fingerprint: rule.Fingerprint,
				Kind:        rule.Kind,
				Field:       rule.Field,
			}); err != nil {
				return nil, err
			}
			continue
		}

		rule.IngestedAt = time.Now().UTC()
		if err := r.storage.InsertRule(ctx, &rule); err != nil {
			return nil, err
		}
		seen[rule.Fingerprint] = true
		result.Accepted = append(result.Accepted, rule)
	}

	if _, err := r.ledger.Append(ctx, ledger.KindRulesIngested, "", ingestPayload{
		Accepted:        len(result.Accepted),
		Duplicates:      len(result.Duplicates),
		Rejected:        len(result.Rejected),
		SnapshotVersion: result.SnapshotVersion,
	}); err != nil {
		return nil, err
	}

	r.logger.Info("rules ingested",
		"accepted", len(result.Accepted),
		"duplicates", len(result.Duplicates),
		"rejected", len(result.Rejected),
		"snapshot_version", result.SnapshotVersion)

	return result, nil
}

// snapshotCurrentSet writes the pre-mutation snapshot and its audit event,
// returning the new version number.
func (r *Repository) snapshotCurrentSet(ctx context.Context, note string) (int64, error) {
	current, err := r.storage.Rules(ctx)
	if err != nil {
		return 0, err
	}
	version, err := r.storage.MaxSnapshotVersion(ctx)
	if err != nil {
		return 0, err
	}

	snapshot := &Snapshot{
		Version:   version + 1,
		CreatedAt: time.Now().UTC(),
		Note:      note,
		Rules:     current,
	}
	if err := r.storage.InsertSnapshot(ctx, snapshot); err != nil {
		return 0, err
	}

	if _, err := r.ledger.Append(ctx, ledger.KindSnapshotCreated, "", snapshotPayload{
		Version:   snapshot.Version,
		RuleCount: len(snapshot.Rules),
		Note:      note,
	}); err != nil {
		return 0, err
	}

	return snapshot.Version, nil
}

// CurrentSet returns the live rule set in ingestion order.
func (r *Repository) CurrentSet(ctx context.Context) ([]Rule, error) {
	return r.storage.Rules(ctx)
}

// Rule returns the live rule with the given identifier.
func (r *Repository) Rule(ctx context.Context, id string) (*Rule, error) {
	return r.storage.Rule(ctx, id)
}

// Snapshots returns all historical snapshots in creation order.
func (r *Repository) Snapshots(ctx context.Context) ([]Snapshot, error) {
	return r.storage.Snapshots(ctx)
}

// RulesAt returns the snapshot with the given version, for inspecting what
// the rule set looked like before a past mutation.
func (r *Repository) RulesAt(ctx context.Context, version int64) (*Snapshot, error) {
	return r.storage.Snapshot(ctx, version)
}
