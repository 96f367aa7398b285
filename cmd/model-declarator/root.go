package main

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"model-declarator/internal/config"
	"model-declarator/internal/descriptor"
	"model-declarator/internal/engine"
	"model-declarator/internal/logging"
)

type rootFlags struct {
	configPath  string
	projectDir  string
	verbose     bool
	quiet       bool
	strict      bool
	classesDirs []string
	classpath   []string
	outputDir   string
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  rootFlags
	logger *log.Logger
	cfg    *config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "model-declarator",
		Short: "Write the model declaration of a compiled JVM artifact",
		Long: `model-declarator reads the class files of an artifact without loading them,
classifies every type as entity, enum or plain by walking its inheritance
chain across the dependency classpath, merges forward declarations published
by dependencies and writes model-declaration.xml with a change fingerprint.

Settings come from model-declarator.toml in the project dir, MODELDECL_*
environment variables (a .env file is honored) and the flags below.`,
		Version:       Version,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default <project-dir>/model-declarator.toml)")
	pf.StringVarP(&a.flags.projectDir, "project-dir", "C", ".", "project directory")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable debug output")
	pf.BoolVarP(&a.flags.quiet, "quiet", "q", false, "only report errors")
	pf.BoolVar(&a.flags.strict, "strict", false, "fail on type references that cannot be resolved")
	pf.StringSliceVar(&a.flags.classesDirs, "classes-dir", nil, "compiled classes directory to scan (repeatable)")
	pf.StringSliceVar(&a.flags.classpath, "classpath", nil, "dependency jar or directory (repeatable, in order)")
	pf.StringVarP(&a.flags.outputDir, "output-dir", "o", "", "directory receiving model-declaration.xml")

	root.AddCommand(
		newGenerateCmd(a),
		newCheckCmd(a),
		newInspectCmd(a),
		newWatchCmd(a),
		newInitCmd(a),
		newCleanCmd(a),
	)
	return root
}

// usageArgs maps argument validation failures to the usage exit code.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// setup builds the logger and loads the configuration, applying flags that
// were set explicitly on top of every other source.
func (a *app) setup(cmd *cobra.Command) error {
	a.logger = logging.New(a.stderr, logging.Level(a.flags.verbose, a.flags.quiet))

	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("strict") {
		overrides["resolve.strict"] = a.flags.strict
	}
	if flags.Changed("classes-dir") {
		overrides["build.classes_dirs"] = a.flags.classesDirs
	}
	if flags.Changed("classpath") {
		overrides["build.classpath"] = a.flags.classpath
	}
	if flags.Changed("output-dir") {
		overrides["output.dir"] = a.flags.outputDir
	}

	cfg, file, err := config.Load(config.LoadOptions{
		ProjectDir: a.flags.projectDir,
		ConfigFile: a.flags.configPath,
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}
	if file != "" {
		a.logger.Debug("loaded config", "file", file)
	}
	a.cfg = cfg
	return nil
}

func (a *app) engineOptions() engine.Options {
	c := a.cfg
	return engine.Options{
		Identity: descriptor.Identity{
			GroupID:    c.Project.GroupID,
			ArtifactID: c.Project.ArtifactID,
			Version:    c.Project.Version,
			GlobalID:   c.Project.GlobalID,
		},
		Dependencies:      c.Build.Dependencies,
		ClassesDirs:       c.Build.ClassesDirs,
		Classpath:         c.Build.Classpath,
		BuildDescriptor:   c.Project.BuildDescriptor,
		EnumRoot:          c.Markers.EnumRoot,
		EntityMarker:      c.Markers.Entity,
		ForwardAnnotation: c.Markers.ForwardAnnotation,
		PlatformPrefixes:  c.Resolve.PlatformPrefixes,
		Strict:            c.Resolve.Strict,
		ArchiveCacheSize:  c.Resolve.ArchiveCacheSize,
		FollowSymlinks:    c.Build.FollowSymlinks,
		Logger:            a.logger,
	}
}
