package gallery

import "callview/internal/core/domain"

// SmartDominantSpeakers selects which participants occupy the bounded
// set of visible tiles. Every current dominant speaker is guaranteed a
// slot; participants already visible keep their slot and position unless
// a dominant speaker needs it. The previous result is passed back in by
// the caller purely for stability, it is never stored here.
//
// The slot-index eviction scan is a deterministic heuristic, not a
// globally optimal minimum-churn assignment.
func SmartDominantSpeakers(
	participants []*domain.RemoteParticipant,
	dominantSpeakers []domain.UserID,
	lastVisible []*domain.RemoteParticipant,
	maxVisible int,
) []*domain.RemoteParticipant {
	if maxVisible <= 0 {
		return nil
	}
	if len(participants) <= maxVisible {
		return participants
	}

	byID := make(map[domain.UserID]*domain.RemoteParticipant, len(participants))
	for _, p := range participants {
		byID[p.UserID] = p
	}

	speakers := filterSpeakers(dominantSpeakers, byID, maxVisible)
	speakerSet := make(map[domain.UserID]bool, len(speakers))
	for _, id := range speakers {
		speakerSet[id] = true
	}

	visible := make([]domain.UserID, 0, maxVisible)
	inVisible := make(map[domain.UserID]bool, maxVisible)
	for _, p := range lastVisible {
		if len(visible) == maxVisible {
			break
		}
		if inVisible[p.UserID] {
			continue
		}
		visible = append(visible, p.UserID)
		inVisible[p.UserID] = true
	}

	// Speakers that still need a slot, in dominance order.
	var queue []domain.UserID
	for _, id := range speakers {
		if !inVisible[id] {
			queue = append(queue, id)
		}
	}

	// Evict non-speakers slot by slot until the queue drains. Evicted
	// ids drop to fill candidates; they are not guaranteed to stay.
	var evicted []domain.UserID
	for i := 0; i < len(visible) && len(queue) > 0; i++ {
		if speakerSet[visible[i]] {
			continue
		}
		evicted = append(evicted, visible[i])
		delete(inVisible, visible[i])
		visible[i] = queue[0]
		inVisible[queue[0]] = true
		queue = queue[1:]
	}
	for _, id := range queue {
		visible = append(visible, id)
		inVisible[id] = true
	}

	for _, id := range evicted {
		if !inVisible[id] {
			visible = append(visible, id)
			inVisible[id] = true
		}
	}
	for _, p := range participants {
		if !inVisible[p.UserID] {
			visible = append(visible, p.UserID)
			inVisible[p.UserID] = true
		}
	}

	result := make([]*domain.RemoteParticipant, 0, maxVisible)
	for _, id := range visible {
		if len(result) == maxVisible {
			break
		}
		// A stale last-visible entry may not resolve anymore; drop it.
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	return result
}

// filterSpeakers deduplicates the ranking by first occurrence, drops ids
// absent from the participant set and truncates to the visible limit.
func filterSpeakers(speakers []domain.UserID, byID map[domain.UserID]*domain.RemoteParticipant, maxVisible int) []domain.UserID {
	out := make([]domain.UserID, 0, maxVisible)
	seen := make(map[domain.UserID]bool, maxVisible)
	for _, id := range speakers {
		if len(out) == maxVisible {
			break
		}
		if seen[id] {
			continue
		}
		if _, ok := byID[id]; !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
