/*
Copyright © 2018 the cmorfix authors.
This file is part of cmorfix.

cmorfix is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cmorfix is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cmorfix.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cmorfixutil contains the command-line interface of cmorfix.
package cmorfixutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cmorfix"
	"github.com/spatialmodel/cmorfix/cloud"
	"github.com/spatialmodel/cmorfix/derive"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to cmorfix.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "log-level",
			usage: `
              log-level is the minimum level of the log messages to print:
              one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "tables",
			usage: `
              tables maps project names to directories holding additional
              CMOR tables, in JSON format, e.g. {"CMIP6":"/data/Tables"}.
              The tables extend the built-in CMIP5 and CMIP6 tables.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "project",
			usage: `
              project is the project the input files belong to, e.g. CMIP6.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fixCmd.Flags(), deriveCmd.Flags()},
		},
		{
			name: "dataset",
			usage: `
              dataset is the name of the model or reanalysis that produced
              the input files, e.g. CanESM2 or ERA5.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fixCmd.Flags()},
		},
		{
			name: "mip",
			usage: `
              mip is the MIP table of the input variable, e.g. Amon.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fixCmd.Flags()},
		},
		{
			name: "variable",
			usage: `
              variable is the CMOR short name of the input variable, e.g. cl.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fixCmd.Flags()},
		},
		{
			name: "output-dir",
			usage: `
              output-dir is the directory fixed files are saved in. It can
              be a blob storage location such as gs://bucket/fixed.`,
			shorthand:  "o",
			defaultVal: "fixed",
			flagsets:   []*pflag.FlagSet{fixCmd.Flags()},
		},
		{
			name: "alternatives",
			usage: `
              alternatives is a list of names of alternative fixes that
              replace the default fixes for their keys, e.g. cmip6.CESM2Cl.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{fixCmd.Flags(), listCmd.Flags()},
		},
		{
			name: "report",
			usage: `
              report is the path of an Excel file to write the list of
              registered fixes to.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{listCmd.Flags()},
		},
		{
			name: "name",
			usage: `
              name is the short name of the variable to derive.`,
			shorthand:  "n",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the file the derived variable is saved in.`,
			defaultVal: "derived.nc",
			flagsets:   []*pflag.FlagSet{deriveCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CMORFIX")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, strings.TrimSpace(b.String()), option.usage)
			default:
				panic("invalid argument type")
			}
		}
		Cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(fixCmd)
	Root.AddCommand(listCmd)
	Root.AddCommand(deriveCmd)
	Root.AddCommand(levelsCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := os.ExpandEnv(Cfg.GetString("config")); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cmorfix: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("cmorfix: %v", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cmorfix",
	Short: "Fix climate model output to comply with the CMOR standard.",
	Long: `cmorfix applies dataset-specific corrections to CMIP5, CMIP6 and
native6 (ERA5) NetCDF files so that they comply with the CF conventions and
the CMOR tables, and derives variables from fixed data.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CMORFIX_var' where 'var' is the
name of the variable to be set, with '-' replaced by '_'.
Input files can be local paths, http(s) URLs, or blob storage locations
(file://, gs://, or s3://).
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of cmorfix.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("cmorfix v%s\n", cmorfix.Version)
	},
	DisableAutoGenTag: true,
}

// fixCmd fixes input files.
var fixCmd = &cobra.Command{
	Use:   "fix [flags] file...",
	Short: "Fix NetCDF files.",
	Long: `fix applies the fixes registered for the given project, dataset,
MIP table and variable to each input file and saves the fixed variable
in the output directory under the input file's name. Inputs ending in '/'
are treated as directories and every file in them is fixed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := Catalog(Cfg)
		if err != nil {
			return err
		}
		reg, err := Registry(Cfg)
		if err != nil {
			return err
		}
		key := cmorfix.Key{
			Project:   Cfg.GetString("project"),
			Dataset:   Cfg.GetString("dataset"),
			MIP:       Cfg.GetString("mip"),
			ShortName: Cfg.GetString("variable"),
		}
		if key.Project == "" || key.Dataset == "" || key.ShortName == "" {
			return fmt.Errorf("cmorfix: project, dataset and variable must be set")
		}
		outputs, err := Fix(context.Background(), key, args,
			os.ExpandEnv(Cfg.GetString("output-dir")), catalog, reg)
		if err != nil {
			return err
		}
		for _, o := range outputs {
			cmd.Println(o)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered fixes.",
	Long: `list prints the registered fixes, one key per line, in the
order they are applied. Alternative fixes that can replace the defaults
are listed separately. With --report, the list is also written to an
Excel file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := Registry(Cfg)
		if err != nil {
			return err
		}
		if err := List(cmd.OutOrStdout(), reg); err != nil {
			return err
		}
		if report := os.ExpandEnv(Cfg.GetString("report")); report != "" {
			return Report(report, reg)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var deriveCmd = &cobra.Command{
	Use:   "derive [flags] file...",
	Short: "Derive a variable from fixed files.",
	Long: `derive computes the variable given by --name from the variables
in the input files and saves it to --output. Available derivations: ` +
		strings.Join(derive.Names(), ", ") + ".",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := Cfg.GetString("name")
		if name == "" {
			return fmt.Errorf("cmorfix: name must be set")
		}
		return Derive(context.Background(), name, Cfg.GetString("project"), args,
			os.ExpandEnv(Cfg.GetString("output")))
	},
	DisableAutoGenTag: true,
}

var levelsCmd = &cobra.Command{
	Use:   "levels spec",
	Short: "Print vertical levels.",
	Long: `levels prints the vertical levels named by spec, one per line.
spec is either a CMOR coordinate in the form PROJECT_coordinate, e.g.
CMIP6_plev19, or a NetCDF file whose vertical coordinate is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := Catalog(Cfg)
		if err != nil {
			return err
		}
		l, err := Levels(context.Background(), catalog, args[0])
		if err != nil {
			return err
		}
		for _, v := range l {
			cmd.Println(v)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// isDir returns whether path names a directory of inputs.
func isDir(path string) bool {
	if cloud.IsBlob(path) {
		return strings.HasSuffix(path, "/")
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
