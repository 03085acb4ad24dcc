package convo

import (
	"fmt"
	"time"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
)

// WriteTodos implements spec.md §4.11's write-only-replace semantics: the
// caller supplies the full desired list; partial add/update is not
// supported (the source's older add/update variant is explicitly dropped
// per spec.md §9's Open Question resolution).
func (s *Store) WriteTodos(conversationID, agentPubkey string, newItems []TodoItem, force bool) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		if err := validateNoDuplicateIDs(newItems); err != nil {
			return err
		}
		if err := validateSkipReasons(newItems); err != nil {
			return err
		}

		existing := c.TodosByAgent[agentPubkey]
		existingByID := make(map[string]TodoItem, len(existing))
		for _, item := range existing {
			existingByID[item.ID] = item
		}

		newIDs := make(map[string]struct{}, len(newItems))
		for _, item := range newItems {
			newIDs[item.ID] = struct{}{}
		}

		var missing []string
		for id := range existingByID {
			if _, ok := newIDs[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 && !force {
			return swarmerr.Validation("newItems", fmt.Sprintf(
				"writeTodos would drop existing todo ids without force=true: %v", missing))
		}

		now := time.Now()
		merged := make([]TodoItem, len(newItems))
		for i, item := range newItems {
			prior, hadPrior := existingByID[item.ID]
			if item.CreatedAt.IsZero() {
				if hadPrior {
					item.CreatedAt = prior.CreatedAt
				} else {
					item.CreatedAt = now
				}
			}
			if item.Description == "" && hadPrior {
				item.Description = prior.Description
			}
			if hadPrior && prior.Status == item.Status {
				item.UpdatedAt = prior.UpdatedAt
			} else {
				item.UpdatedAt = now
			}
			merged[i] = item
		}

		c.TodosByAgent[agentPubkey] = merged
		return nil
	})
}

func validateNoDuplicateIDs(items []TodoItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			return swarmerr.Validation("newItems", fmt.Sprintf("duplicate todo id %q", item.ID))
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func validateSkipReasons(items []TodoItem) error {
	for _, item := range items {
		if item.Status == TodoSkipped && item.SkipReason == "" {
			return swarmerr.Validation("skipReason", fmt.Sprintf("todo %q has status=skipped but no skipReason", item.ID))
		}
	}
	return nil
}
