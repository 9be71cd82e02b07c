package oracle

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/eventarb/internal/ledger"
)

// Service composes the structural pre-filter, the verdict cache, and the
// external classifier. Constructed once in wiring and passed by reference;
// it keeps no global state.
type Service struct {
	classifier Classifier
	verdicts   *ledger.KVLedger

	mu     sync.Mutex
	memo   map[string]bool // process-lifetime verdict memo
	logger *slog.Logger
}

// NewService creates an exclusivity oracle service. verdicts may not be nil;
// classifier may be nil, in which case events that fail the structural
// pre-filter and have no cached verdict are reported as not exclusive.
func NewService(classifier Classifier, verdicts *ledger.KVLedger, logger *slog.Logger) *Service {
	return &Service{
		classifier: classifier,
		verdicts:   verdicts,
		memo:       make(map[string]bool),
		logger:     logger.With(slog.String("component", "oracle")),
	}
}

// IsExclusive reports whether the event's markets form a mutually exclusive,
// exhaustive set. Resolution order: structural heuristics, in-memory memo,
// persisted ledger, classifier. Classifier verdicts are persisted so a
// restart does not re-spend the classification cost.
func (s *Service) IsExclusive(ctx context.Context, eventID, title, description string, tags []string) (bool, error) {
	if LooksObviouslyExclusive(title, tags) {
		return true, nil
	}

	s.mu.Lock()
	verdict, ok := s.memo[eventID]
	s.mu.Unlock()
	if ok {
		return verdict, nil
	}

	if raw, ok := s.verdicts.Get(eventID); ok {
		verdict, err := strconv.ParseBool(raw)
		if err == nil {
			s.remember(eventID, verdict)
			return verdict, nil
		}
		s.logger.Warn("discarding unparseable cached verdict",
			slog.String("event_id", eventID),
			slog.String("value", raw),
		)
	}

	if s.classifier == nil {
		return false, nil
	}

	verdict, err := s.classifier.Classify(ctx, eventID, classifierText(title, description))
	if err != nil {
		return false, err
	}

	if err := s.verdicts.Put(eventID, strconv.FormatBool(verdict)); err != nil {
		// The verdict is still usable this run; only persistence failed.
		s.logger.Warn("failed to persist oracle verdict",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
	s.remember(eventID, verdict)
	return verdict, nil
}

// classifierText joins the event's title and description into the prompt
// text. Gamma descriptions spell out the resolution rules, which is what the
// exclusivity question hinges on.
func classifierText(title, description string) string {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title == "":
		return description
	case description == "":
		return title
	}
	return title + "\n\n" + description
}

func (s *Service) remember(eventID string, verdict bool) {
	s.mu.Lock()
	s.memo[eventID] = verdict
	s.mu.Unlock()
}
