package selectors

import "callview/internal/core/domain"

// maxCaptions bounds the caption history handed to the banner component.
const maxCaptions = 50

type CaptionsView struct {
	IsActive       bool
	SpokenLanguage string
	Captions       []domain.Caption
}

type CaptionsSelector struct {
	cell *memoCell[*CaptionsView]
}

func NewCaptionsSelector(observer CacheObserver) *CaptionsSelector {
	return &CaptionsSelector{cell: newMemoCell[*CaptionsView]("captions", observer)}
}

func (s *CaptionsSelector) Select(state *domain.CallClientState, callID domain.CallID) *CaptionsView {
	call := CallFor(state, callID)
	info := CaptionsOf(call)
	if info == nil {
		return nil
	}

	deps := []any{info}
	return s.cell.get(deps, func() *CaptionsView {
		captions := info.Captions
		if len(captions) > maxCaptions {
			captions = captions[len(captions)-maxCaptions:]
		}
		return &CaptionsView{
			IsActive:       info.IsActive,
			SpokenLanguage: info.SpokenLanguage,
			Captions:       captions,
		}
	})
}
