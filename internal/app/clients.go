package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/casechat-backend/internal/modules/indexing"
	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/db"
	"github.com/yungbote/casechat-backend/internal/platform/gcp"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/openai"
	"github.com/yungbote/casechat-backend/internal/platform/redisx"
)

// Components selects which parts of the process to build. The CLI's poll
// command, for example, only needs the job table.
type Components struct {
	Chat      bool
	Ingestion bool
	Indexing  bool
	Worker    bool
}

func AllComponents() Components {
	return Components{Chat: true, Ingestion: true, Indexing: true, Worker: true}
}

func (c Components) needsDB() bool      { return c.Indexing || c.Ingestion || c.Worker }
func (c Components) needsBlobs() bool   { return c.Chat || c.Ingestion || c.Worker }
func (c Components) needsModel() bool   { return c.Chat || c.Worker }
func (c Components) needsVectors() bool { return c.Chat || c.Worker }

type Clients struct {
	DB        *gorm.DB
	Redis     *goredis.Client
	Blobs     blob.Store
	Extractor *gcp.DocumentExtractor
	OpenAI    *openai.Client
	Vectors   vectorStore

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, comps Components) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	if comps.needsDB() {
		gdb, err := db.Open(log, cfg.DB)
		if err != nil {
			return c, fmt.Errorf("init database: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			c.closers = append(c.closers, sqlDB.Close)
		}
		if err := db.AutoMigrate(gdb, &indexing.IndexJob{}); err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("database automigrate: %w", err)
		}
		c.DB = gdb
	}

	if cfg.NeedsRedis() && comps.needsBlobs() {
		rdb, err := redisx.NewClient(ctx, cfg.Redis)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
	}

	if comps.needsBlobs() {
		var rdb goredis.UniversalClient
		if c.Redis != nil {
			rdb = c.Redis
		}
		store, closeFn, err := resolveBlobStore(ctx, log, cfg, rdb)
		if err != nil {
			c.Close()
			return Clients{}, err
		}
		c.Blobs = store
		c.closers = append(c.closers, closeFn)
	}

	if comps.Ingestion {
		ex, err := gcp.NewDocumentExtractor(ctx, log, cfg.Document)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init document extractor: %w", err)
		}
		c.Extractor = ex
		c.closers = append(c.closers, ex.Close)
	}

	if comps.needsModel() {
		oc, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			c.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.OpenAI = oc
	}

	if comps.needsVectors() {
		vs, closeFn, err := resolveVectorStore(ctx, log, cfg.Qdrant)
		if err != nil {
			c.Close()
			return Clients{}, err
		}
		c.Vectors = vs
		c.closers = append(c.closers, closeFn)
	}

	return c, nil
}

// Close releases clients in reverse creation order.
func (c *Clients) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if c.closers[i] != nil {
			_ = c.closers[i]()
		}
	}
	c.closers = nil
}
