package ai

import (
	"github.com/vidyaverse/core/internal/modules/system/core/configs"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service runs every LLM-backed operation: content analysis, semantic search
// ranking and personalized recommendations. Provider and parse failures never
// bubble up as errors; each operation degrades to a deterministic fallback.
type Service struct {
	db        *gorm.DB
	cfgSvc    *configs.Service
	taskSvc   *taskqueue.Service
	logger    *zap.Logger
	broadcast func(event string, payload interface{})
}

type ServiceOption func(*Service)

// WithLogger sets the logger for the AI service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("AIService")
		}
	}
}

func NewService(db *gorm.DB, cfgSvc *configs.Service, taskSvc *taskqueue.Service, opts ...ServiceOption) *Service {
	s := &Service{db: db, cfgSvc: cfgSvc, taskSvc: taskSvc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcast installs the hook used to push realtime events (for example
// when a background analysis finishes). Safe to leave unset.
func (s *Service) SetBroadcast(fn func(event string, payload interface{})) {
	s.broadcast = fn
}

func (s *Service) emit(event string, payload interface{}) {
	if s.broadcast != nil {
		s.broadcast(event, payload)
	}
}
