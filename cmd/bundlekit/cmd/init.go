package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default bundlekit.yaml scaffold: one bundle with
// sass, babel and image rules plus an HTML page and bundle analysis.
const initTemplate = `# bundlekit configuration
mode: development

entry:
  bundle: src/index.js

output:
  path: dist
  filename: "[name][contenthash].js"
  clean: true
  assetModuleFilename: "[name][ext]"

devtool: source-map

devServer:
  static:
    directory: dist
  port: 3000
  open: true
  hot: true
  compress: true
  historyApiFallback: true

module:
  rules:
    - test: '\.scss$'
      use: [style-loader, css-loader, sass-loader]

    - test: '\.js$'
      exclude: node_modules
      use:
        loader: babel-loader
        options:
          presets: ["@babel/preset-env"]

    - test: '/\.(png|svg|jpg|jpeg|gif)$/i'
      type: asset/resource

    # Overlapping rules with different loaders need a priority:
    # - test: '\.svg$'
    #   type: asset/inline
    #   priority: 10

plugins:
  - kind: html
    options:
      title: bundlekit App
      filename: index.html
      template: src/template.html
  - kind: bundle-analyzer
    options:
      analyzerMode: static
  # - kind: manifest

# loaderDefinitions:
#   - name: markdown-loader
#     loader: text
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter bundlekit.yaml configuration",
	Long: `Creates a bundlekit.yaml file in the current directory with a commented
template covering entry points, output naming, transformation rules, the dev
server and post-build plugins.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := renameio.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		success("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Create src/index.js and src/template.html")
		info("  2. Run 'bundlekit validate' to check the configuration")
		info("  3. Run 'bundlekit serve' to start the dev server")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
