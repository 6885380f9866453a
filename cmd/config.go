package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "modimporter"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	rootFlagName     = "root"
	gameFlagName     = "game"
	cleanFlagName    = "clean"
	verboseFlagName  = "verbose"
	quietFlagName    = "quiet"
	logFileFlagName  = "log-file"
	parallelFlagName = "parallel"
	metricsFlagName  = "metrics-file"
	formatFlagName   = "format"
	debounceFlagName = "debounce"

	rootConfigKey            = "root"
	gameConfigKey            = "game"
	modsDirConfigKey         = "mods.dir"
	modsFileConfigKey        = "mods.file"
	defaultToConfigKey       = "mods.default_to"
	defaultPriorityConfigKey = "mods.default_priority"
	importPrefixConfigKey    = "mods.import_prefix"
	backupDirConfigKey       = "backup.dir"
	runParallelConfigKey     = "run.parallel"
	metricsFileConfigKey     = "metrics.file"
	reportFileConfigKey      = "report.file"
	watchDebounceConfigKey   = "watch.debounce"

	defaultRoot            = "."
	defaultModsDir         = "Mods"
	defaultModsFile        = "modfile.txt"
	defaultPriority        = 100
	defaultImportPrefix    = ".."
	defaultBackupDir       = "Backup"
	defaultRunParallel     = 1
	defaultReportFile      = "modimporter-report.yaml"
	defaultWatchDebounce   = 500 * time.Millisecond
	defaultDumpFormat      = "json"
	defaultMetricsFilePath = ""

	envPrefix = "MODIMPORTER"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = "modimporter.log.txt"
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(rootConfigKey, defaultRoot)
	viper.SetDefault(gameConfigKey, "")
	viper.SetDefault(modsDirConfigKey, defaultModsDir)
	viper.SetDefault(modsFileConfigKey, defaultModsFile)
	viper.SetDefault(defaultToConfigKey, []string{})
	viper.SetDefault(defaultPriorityConfigKey, defaultPriority)
	viper.SetDefault(importPrefixConfigKey, defaultImportPrefix)
	viper.SetDefault(backupDirConfigKey, defaultBackupDir)
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(metricsFileConfigKey, defaultMetricsFilePath)
	viper.SetDefault(reportFileConfigKey, defaultReportFile)
	viper.SetDefault(watchDebounceConfigKey, defaultWatchDebounce)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// logLevel picks the level from the verbosity flags, falling back to the
// configured level.
func logLevel(verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}
}

// configureLogger configures the global slog logger to write into a
// rotating log file.
func configureLogger(logPath string, level slog.Level) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
