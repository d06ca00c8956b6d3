package styling

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/mapsession"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

var ErrStyleNotFound = errors.New("style not found")

// StyleSet holds one map session per loaded style, keyed by style ID
type StyleSet struct {
	logger         *logpkg.Logger
	loader         mapsession.SourceDataLoader
	mu             sync.RWMutex
	sessionsMap    map[string]*mapsession.Session // map[Style ID]Session
	defaultStyleID string
}

func NewStyleSet(ctx context.Context, logger *logpkg.Logger, loader mapsession.SourceDataLoader, styles []*mapboxglstyle.Style, defaultStyleID string) (*StyleSet, errorsx.Error) {
	styleSet := &StyleSet{
		logger:         logger,
		loader:         loader,
		sessionsMap:    make(map[string]*mapsession.Session),
		defaultStyleID: defaultStyleID,
	}

	for _, style := range styles {
		err := styleSet.AddStyle(ctx, style)
		if err != nil {
			return nil, err
		}
	}

	_, ok := styleSet.sessionsMap[defaultStyleID]
	if !ok {
		return nil, errorsx.Errorf("default ID %q not found in any supplied styles", defaultStyleID)
	}

	return styleSet, nil
}

// AddStyle opens a new session for style. The style ID must not already be in the set.
func (s *StyleSet) AddStyle(ctx context.Context, style *mapboxglstyle.Style) errorsx.Error {
	if style.ID == "" {
		return errorsx.Errorf("style %q has no ID", style.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessionsMap[style.ID]
	if ok {
		return errorsx.Errorf("duplicate style ID found: %q", style.ID)
	}

	session := mapsession.NewSession(s.logger, s.loader)
	err := session.LoadStyle(ctx, style)
	if err != nil {
		return errorsx.Wrap(err, "styleID", style.ID)
	}

	s.sessionsMap[style.ID] = session
	return nil
}

// RemoveStyle closes the style's session. The default style can't be removed.
func (s *StyleSet) RemoveStyle(id string) errorsx.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.defaultStyleID {
		return errorsx.Errorf("cannot remove the default style %q", id)
	}

	session, ok := s.sessionsMap[id]
	if !ok {
		return errorsx.Wrap(ErrStyleNotFound, "styleID", id)
	}

	session.Events().Close()
	delete(s.sessionsMap, id)
	return nil
}

// GetSessionByID returns the session for the style, or the default style's session if id is empty
func (s *StyleSet) GetSessionByID(id string) (*mapsession.Session, errorsx.Error) {
	if id == "" {
		id = s.defaultStyleID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessionsMap[id]
	if !ok {
		return nil, errorsx.Wrap(ErrStyleNotFound, "styleID", id)
	}

	return session, nil
}

func (s *StyleSet) GetDefaultStyleID() string {
	return s.defaultStyleID
}

func (s *StyleSet) GetAllStyleIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var styleIDs []string
	for id := range s.sessionsMap {
		styleIDs = append(styleIDs, id)
	}

	sort.Strings(styleIDs)

	return styleIDs
}
