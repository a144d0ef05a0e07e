package app

import (
	"fmt"

	"github.com/yungbote/casechat-backend/internal/modules/chat"
	"github.com/yungbote/casechat-backend/internal/modules/indexing"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/redisx"
)

type Services struct {
	IndexJobs indexing.JobRepo
	Indexer   *indexing.Indexer
	Poller    *indexing.Poller
	Worker    *indexing.Worker

	History      *chat.HistoryStore
	Orchestrator *chat.Orchestrator

	Ingestion *ingestion.Service
}

func wireServices(log *logger.Logger, cfg Config, comps Components, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	var s Services

	if clients.DB != nil {
		s.IndexJobs = indexing.NewJobRepo(clients.DB, log)
		indexer, err := indexing.NewIndexer(log, s.IndexJobs, cfg.Index.Trigger)
		if err != nil {
			return s, fmt.Errorf("init indexer: %w", err)
		}
		s.Indexer = indexer
		poller, err := indexing.NewPoller(log, indexer)
		if err != nil {
			return s, fmt.Errorf("init index poller: %w", err)
		}
		s.Poller = poller
	}

	if comps.Worker && !cfg.Index.WorkerDisabled {
		w, err := indexing.NewWorker(log, s.IndexJobs, clients.Blobs, clients.OpenAI, clients.Vectors, cfg.Index.Worker)
		if err != nil {
			return s, fmt.Errorf("init index worker: %w", err)
		}
		s.Worker = w
	}

	if comps.Chat {
		history, err := chat.NewHistoryStore(log, clients.Blobs, cfg.Session.KeyPrefix, cfg.Session.SystemPrompt)
		if err != nil {
			return s, fmt.Errorf("init history store: %w", err)
		}
		s.History = history

		var locker chat.SessionLocker
		if cfg.Session.LockEnabled {
			l, err := redisx.NewSessionLocker(log, clients.Redis, cfg.Redis.KeyPrefix, cfg.Session.LockTTL, cfg.Session.LockWait)
			if err != nil {
				return s, fmt.Errorf("init session locker: %w", err)
			}
			locker = l
		}

		orch, err := chat.NewOrchestrator(
			log,
			chat.VectorRetriever{Embedder: clients.OpenAI, Searcher: clients.Vectors},
			chat.ModelCompleter{Client: clients.OpenAI},
			history,
			locker,
			cfg.Chat,
		)
		if err != nil {
			return s, fmt.Errorf("init orchestrator: %w", err)
		}
		s.Orchestrator = orch
	}

	if comps.Ingestion {
		if s.Indexer == nil {
			return s, fmt.Errorf("ingestion requires the index job table")
		}
		svc, err := ingestion.NewService(log, clients.Blobs, clients.Extractor, s.Indexer, cfg.Ingestion)
		if err != nil {
			return s, fmt.Errorf("init ingestion: %w", err)
		}
		s.Ingestion = svc
	}

	return s, nil
}
