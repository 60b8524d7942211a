package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cloudshipai/gitconfd/internal/materializer/loader"
	"github.com/cloudshipai/gitconfd/internal/render"
)

func newTransformCommand() *cobra.Command {
	var (
		configsPath       string
		templatesPath     string
		templatesRegex    string
		environmentsRegex string
		strict            bool
		ignoreExisting    bool
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Render every matching template on disk against every local environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(configsPath, templatesPath, templatesRegex, environmentsRegex, strict, ignoreExisting)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configsPath, "configs-path", "", "directory containing config.<env>.json fragments")
	flags.StringVar(&templatesPath, "templates-path", "", "directory of templates to render")
	flags.StringVar(&templatesRegex, "templates-regex", `\.tmpl$`, "regex matching template file names")
	flags.StringVar(&environmentsRegex, "environments-regex", ".+", "regex restricting discovered environment names")
	flags.BoolVar(&strict, "strict", false, "treat missing template variables as errors")
	flags.BoolVar(&ignoreExisting, "ignore-existing", false, "skip a template whose rendered output file already exists")

	_ = cmd.MarkFlagRequired("configs-path")
	_ = cmd.MarkFlagRequired("templates-path")

	return cmd
}

func runTransform(configsPath, templatesPath, templatesRegex, environmentsRegex string, strict, ignoreExisting bool) error {
	envRegex, err := regexp.Compile("(?i)" + environmentsRegex)
	if err != nil {
		return err
	}
	tmplRegex, err := regexp.Compile(templatesRegex)
	if err != nil {
		return err
	}

	configsFS := afero.NewBasePathFs(afero.NewOsFs(), configsPath)
	environments, err := loader.Load(configsFS, envRegex)
	if err != nil {
		return err
	}
	if len(environments) == 0 {
		return fmt.Errorf("no environments found under %s", configsPath)
	}

	var templates []string
	err = afero.Walk(afero.NewOsFs(), templatesPath, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if tmplRegex.MatchString(filepath.Base(path)) {
			templates = append(templates, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, tmplPath := range templates {
		raw, err := os.ReadFile(tmplPath)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(templatesPath, tmplPath)
		if err != nil {
			return err
		}

		for _, env := range environments {
			outPath := filepath.Join(filepath.Dir(tmplPath), env.Name, trimTemplateSuffix(rel, tmplRegex))

			if ignoreExisting {
				if _, statErr := os.Stat(outPath); statErr == nil {
					continue
				}
			}

			rendered, err := render.Render(string(raw), env, strict)
			if err != nil {
				return fmt.Errorf("render %s for %s: %w", tmplPath, env.Name, err)
			}

			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
				return err
			}
		}
	}

	return nil
}

// trimTemplateSuffix drops the portion of name's base matched by
// tmplRegex, e.g. "app.conf.tmpl" -> "app.conf".
func trimTemplateSuffix(name string, tmplRegex *regexp.Regexp) string {
	base := filepath.Base(name)
	loc := tmplRegex.FindStringIndex(base)
	if loc == nil {
		return name
	}
	trimmed := base[:loc[0]] + base[loc[1]:]
	return filepath.Join(filepath.Dir(name), trimmed)
}
