package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/cattongue/internal/backend/catapi"
	"github.com/jo-hoe/cattongue/internal/backend/database"
)

var (
	ErrMissingIdentity = errors.New("missing session identity")
	ErrInvalidOffset   = errors.New("offset must not be negative")
	ErrEmptyURL        = errors.New("image url is empty")
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	catClient       *catapi.Client
	saveLog         *saveLog
}

func NewCoreService(config *ServiceConfig) *CoreService {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		slog.Error("failed to initialize database service", "error", err)
		panic(err)
	}
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		catClient:       catapi.NewClient(config.CatAPI.URL, config.CatAPI.APIKey, config.CatAPI.Timeout),
		saveLog:         newSaveLog(config.SaveLogPath),
	}
}

func (service *CoreService) ListCats(ctx context.Context, bicmid string, offset int) ([]*database.Cat, error) {
	if bicmid == "" {
		return nil, ErrMissingIdentity
	}
	if offset < 0 {
		return nil, ErrInvalidOffset
	}
	return service.databaseService.ListCats(ctx, bicmid, offset)
}

func (service *CoreService) CountCats(ctx context.Context, bicmid string) (int, error) {
	if bicmid == "" {
		return 0, ErrMissingIdentity
	}
	return service.databaseService.CountCats(ctx, bicmid)
}

// DeleteCat removes the cat when it belongs to bicmid; other owners' ids are ignored.
func (service *CoreService) DeleteCat(ctx context.Context, bicmid string, id int64) error {
	if bicmid == "" {
		return ErrMissingIdentity
	}
	affected, err := service.databaseService.DeleteCat(ctx, bicmid, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		slog.Debug("delete matched no cat of this owner", "cat_id", id)
	}
	return nil
}

func (service *CoreService) SaveCat(ctx context.Context, bicmid string, url string) (int64, error) {
	if bicmid == "" {
		return 0, ErrMissingIdentity
	}
	if url == "" {
		return 0, ErrEmptyURL
	}

	id, err := service.databaseService.SaveCat(ctx, bicmid, url)
	if err != nil {
		return 0, err
	}

	if err := service.saveLog.append(url); err != nil {
		slog.Warn("failed to append to save log", "path", service.config.SaveLogPath, "error", err)
	}
	return id, nil
}

func (service *CoreService) RandomCat(ctx context.Context) (*catapi.Image, error) {
	return service.catClient.Random(ctx)
}

func (service *CoreService) IsHealthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(context.Background(), config.Database.Type, config.Database.ConnectionString, config.Database.MaxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type, "path", config.Database.ConnectionString)
	return databaseService, nil
}
