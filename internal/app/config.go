package app

import (
	"github.com/caresignal/caresignal-backend/internal/config"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/utils"
)

type Config struct {
	Env      string
	Port     string
	Pipeline config.Pipeline
}

func LoadConfig(log *logger.Logger) (Config, error) {
	env := utils.GetEnv("ENV", "development", log)
	port := utils.GetEnv("PORT", "8080", log)

	pipeline := config.Default()
	path := utils.GetEnv("PIPELINE_CONFIG_PATH", "", log)
	pipeline, err := config.LoadFile(pipeline, path)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Env:      env,
		Port:     port,
		Pipeline: pipeline,
	}, nil
}
