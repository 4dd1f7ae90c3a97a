package config

const (
	defaultLibraryDir         = "~/RetroPie/roms/scummvm"
	defaultConfigFile         = "~/.config/scummvm/scummvm.ini"
	defaultLibretroConfigFile = "~/RetroPie/BIOS/scummvm.ini"
	defaultStateDir           = "~/.local/share/scummsync"
	defaultLogDir             = "~/.local/share/scummsync/logs"
	defaultEngineBinary       = "scummvm"
	defaultDetectTimeout      = 60
	defaultMarkerExtension    = ".svm"
	defaultDefaultsSection    = "scummvm"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:         defaultLibraryDir,
			ConfigFile:         defaultConfigFile,
			LibretroConfigFile: defaultLibretroConfigFile,
			StateDir:           defaultStateDir,
			LogDir:             defaultLogDir,
		},
		Engine: Engine{
			Binary:        defaultEngineBinary,
			PassConfig:    true,
			DetectTimeout: defaultDetectTimeout,
		},
		Markers: Markers{
			Extension: defaultMarkerExtension,
		},
		Store: Store{
			DefaultsSection: defaultDefaultsSection,
			Backup:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
