// Package config loads the model-declarator settings. Sources, lowest
// precedence first: built-in defaults, values detected from the project's
// build files, model-declarator.toml, MODELDECL_* environment variables (a
// .env file in the project dir is loaded into the environment first) and
// explicit overrides from the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"model-declarator/internal/classify"
	"model-declarator/internal/classpath"
	"model-declarator/internal/meta"
)

const (
	// FileName is looked up in the project dir when no file is given.
	FileName = "model-declarator.toml"
	// EnvPrefix prefixes environment overrides, e.g. MODELDECL_RESOLVE_STRICT.
	EnvPrefix = "MODELDECL"

	DefaultOutputDir = "generated/main/java"
	DefaultCacheDir  = ".model-declarator"
)

// Config is the full set of settings.
type Config struct {
	Project ProjectConfig `mapstructure:"project" toml:"project"`
	Build   BuildConfig   `mapstructure:"build" toml:"build"`
	Output  OutputConfig  `mapstructure:"output" toml:"output"`
	Markers MarkersConfig `mapstructure:"markers" toml:"markers"`
	Resolve ResolveConfig `mapstructure:"resolve" toml:"resolve"`
	Cache   CacheConfig   `mapstructure:"cache" toml:"cache"`
}

type ProjectConfig struct {
	Dir             string `mapstructure:"dir" toml:"dir,omitempty"`
	GroupID         string `mapstructure:"group_id" toml:"group_id"`
	ArtifactID      string `mapstructure:"artifact_id" toml:"artifact_id"`
	Version         string `mapstructure:"version" toml:"version"`
	GlobalID        string `mapstructure:"global_id" toml:"global_id,omitempty"`
	BuildDescriptor string `mapstructure:"build_descriptor" toml:"build_descriptor"`
}

type BuildConfig struct {
	ClassesDirs    []string `mapstructure:"classes_dirs" toml:"classes_dirs"`
	Classpath      []string `mapstructure:"classpath" toml:"classpath"`
	Dependencies   []string `mapstructure:"dependencies" toml:"dependencies"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks" toml:"follow_symlinks"`
}

type OutputConfig struct {
	Dir             string `mapstructure:"dir" toml:"dir"`
	ForwardManifest bool   `mapstructure:"forward_manifest" toml:"forward_manifest"`
}

type MarkersConfig struct {
	EnumRoot          string `mapstructure:"enum_root" toml:"enum_root"`
	Entity            string `mapstructure:"entity" toml:"entity"`
	ForwardAnnotation string `mapstructure:"forward_annotation" toml:"forward_annotation"`
}

type ResolveConfig struct {
	Strict           bool     `mapstructure:"strict" toml:"strict"`
	PlatformPrefixes []string `mapstructure:"platform_prefixes" toml:"platform_prefixes"`
	ArchiveCacheSize int      `mapstructure:"archive_cache_size" toml:"archive_cache_size"`
}

type CacheConfig struct {
	Dir      string `mapstructure:"dir" toml:"dir"`
	Disabled bool   `mapstructure:"disabled" toml:"disabled"`
}

// LoadOptions selects where settings come from.
type LoadOptions struct {
	// ProjectDir defaults to the working directory.
	ProjectDir string
	// ConfigFile, when set, must exist. Otherwise <ProjectDir>/FileName is
	// used if present.
	ConfigFile string
	// Overrides win over every other source. Keys are dotted, e.g.
	// "resolve.strict".
	Overrides map[string]any
}

// ErrConfigNotFound is returned for an explicit config file that is missing.
var ErrConfigNotFound = errors.New("config file not found")

// Default returns the built-in settings before detection.
func Default() Config {
	return Config{
		Output: OutputConfig{Dir: DefaultOutputDir, ForwardManifest: true},
		Markers: MarkersConfig{
			EnumRoot:          classify.DefaultEnumRoot,
			Entity:            classify.DefaultEntityMarker,
			ForwardAnnotation: classify.DefaultForwardAnnotation,
		},
		Resolve: ResolveConfig{
			PlatformPrefixes: append([]string(nil), classify.DefaultPlatformPrefixes...),
			ArchiveCacheSize: classpath.DefaultArchiveCacheSize,
		},
		Cache: CacheConfig{Dir: DefaultCacheDir},
	}
}

// Load resolves the configuration and returns it together with the config
// file that was read ("" if none). Relative paths in the result are made
// absolute against the project dir.
func Load(opts LoadOptions) (*Config, string, error) {
	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, "", fmt.Errorf("project dir: %w", err)
	}

	if err := godotenv.Load(filepath.Join(projectDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	detected := meta.Detect(projectDir)
	v := viper.New()
	setDefaults(v, detected)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := ""
	switch {
	case opts.ConfigFile != "":
		if !fileExists(opts.ConfigFile) {
			return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFile)
		}
		resolved = opts.ConfigFile
	case fileExists(filepath.Join(projectDir, FileName)):
		resolved = filepath.Join(projectDir, FileName)
	}
	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", resolved, err)
		}
	}
	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Project.Dir == "" {
		cfg.Project.Dir = projectDir
	}
	cfg.resolvePaths(projectDir)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolved, nil
}

func setDefaults(v *viper.Viper, inf meta.Info) {
	d := Default()
	v.SetDefault("project.dir", "")
	v.SetDefault("project.group_id", inf.GroupID)
	v.SetDefault("project.artifact_id", inf.ArtifactID)
	v.SetDefault("project.version", inf.Version)
	v.SetDefault("project.global_id", "")
	v.SetDefault("project.build_descriptor", inf.BuildDescriptor)
	v.SetDefault("build.classes_dirs", defaultClassesDirs(inf.Build))
	v.SetDefault("build.classpath", []string{})
	v.SetDefault("build.dependencies", inf.Dependencies)
	v.SetDefault("build.follow_symlinks", d.Build.FollowSymlinks)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.forward_manifest", d.Output.ForwardManifest)
	v.SetDefault("markers.enum_root", d.Markers.EnumRoot)
	v.SetDefault("markers.entity", d.Markers.Entity)
	v.SetDefault("markers.forward_annotation", d.Markers.ForwardAnnotation)
	v.SetDefault("resolve.strict", d.Resolve.Strict)
	v.SetDefault("resolve.platform_prefixes", d.Resolve.PlatformPrefixes)
	v.SetDefault("resolve.archive_cache_size", d.Resolve.ArchiveCacheSize)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.disabled", d.Cache.Disabled)
}

func defaultClassesDirs(build string) []string {
	if build == "maven" {
		return []string{"target/classes"}
	}
	return []string{"build/classes/java/main"}
}

func (c *Config) resolvePaths(projectDir string) {
	if !filepath.IsAbs(c.Project.Dir) {
		c.Project.Dir = filepath.Join(projectDir, c.Project.Dir)
	}
	base := c.Project.Dir
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Project.BuildDescriptor = abs(c.Project.BuildDescriptor)
	for i := range c.Build.ClassesDirs {
		c.Build.ClassesDirs[i] = abs(c.Build.ClassesDirs[i])
	}
	for i := range c.Build.Classpath {
		c.Build.Classpath[i] = abs(c.Build.Classpath[i])
	}
	c.Output.Dir = abs(c.Output.Dir)
	c.Cache.Dir = abs(c.Cache.Dir)
}

// Validate reports the first setting that makes a run impossible.
func (c *Config) Validate() error {
	switch {
	case c.Project.GroupID == "":
		return errors.New("project.group_id is not set and could not be detected")
	case c.Project.ArtifactID == "":
		return errors.New("project.artifact_id is not set and could not be detected")
	case len(c.Build.ClassesDirs) == 0:
		return errors.New("build.classes_dirs must name at least one directory")
	case c.Output.Dir == "":
		return errors.New("output.dir must be set")
	case c.Resolve.ArchiveCacheSize < 0:
		return fmt.Errorf("resolve.archive_cache_size must be >= 0, got %d", c.Resolve.ArchiveCacheSize)
	}
	return nil
}

// Marshal renders c as TOML.
func Marshal(c Config) ([]byte, error) {
	return toml.Marshal(c)
}

// WriteDefault writes a starter config for projectDir, pre-filled with what
// could be detected, to <projectDir>/FileName. An existing file is only
// replaced when force is set.
func WriteDefault(projectDir string, force bool) (string, error) {
	path := filepath.Join(projectDir, FileName)
	if fileExists(path) && !force {
		return path, fmt.Errorf("%s already exists", path)
	}
	inf := meta.Detect(projectDir)
	c := Default()
	c.Project.GroupID = inf.GroupID
	c.Project.ArtifactID = inf.ArtifactID
	c.Project.Version = inf.Version
	if inf.BuildDescriptor != "" {
		c.Project.BuildDescriptor = filepath.Base(inf.BuildDescriptor)
	}
	c.Build.ClassesDirs = defaultClassesDirs(inf.Build)
	c.Build.Classpath = []string{}
	c.Build.Dependencies = inf.Dependencies
	if c.Build.Dependencies == nil {
		c.Build.Dependencies = []string{}
	}
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
