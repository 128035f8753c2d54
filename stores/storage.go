package stores

import (
	"excalidraw-drawings/config"
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/aws"
	"excalidraw-drawings/stores/filesystem"
	"excalidraw-drawings/stores/memory"
	"excalidraw-drawings/stores/sqlite"
	"fmt"

	"github.com/sirupsen/logrus"
)

// GetStorage returns the durable client storage selected by cfg.Type.
func GetStorage(cfg config.StorageConfig) (core.Storage, error) {
	var (
		store core.Storage
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.BasePath
		store, err = filesystem.NewStore(cfg.BasePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
		storageField["bucketName"] = cfg.S3Bucket
		storageField["prefix"] = cfg.S3Prefix
		store, err = aws.NewStore(cfg.S3Bucket, cfg.S3Prefix, cfg.Timeout)
	case "", "memory":
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}

// GetRepository returns the server-side drawing repository. Only the memory
// and sqlite backends can serve it.
func GetRepository(cfg config.StorageConfig) (core.DrawingRepository, error) {
	var repo core.DrawingRepository

	storageField := logrus.Fields{
		"storageType": cfg.Type,
	}

	switch cfg.Type {
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err := sqlite.NewStore(cfg.DataSourceName)
		if err != nil {
			return nil, err
		}
		repo = store
	case "", "memory":
		repo = memory.NewStore()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("storage type %q cannot hold drawings; use memory or sqlite", cfg.Type)
	}

	logrus.WithFields(storageField).Info("Use drawing repository")
	return repo, nil
}
