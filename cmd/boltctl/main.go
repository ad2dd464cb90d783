// MIT License
//
// Copyright (c) 2020 codingfinest
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	bolt "github.com/disneystreaming/neo4j-go-bolt"
)

var (
	configPath string
	verbose    bool
	logQueries bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boltctl",
		Short: "Operate a graph database through the bolt session layer",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logQueries, "log-queries", false, "log every statement")

	rootCmd.AddCommand(pingCmd(), queryCmd(), indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openDatabase() (*bolt.Database, error) {
	config, err := bolt.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logQueries {
		config.LogQueries = true
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return bolt.Open(config, logger)
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Run a keep-alive statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Shutdown()

			if err := db.Ping(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func queryCmd() *cobra.Command {
	var (
		params []string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "query <cypher>",
		Short: "Run a statement and print its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Shutdown()

			return runQuery(db, args[0], parameters, commit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "statement parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit instead of rolling back")
	return cmd
}

//runQuery prints every record of statement as key=value fields. With commit the transaction
//is committed and a failed commit is returned.
func runQuery(db *bolt.Database, statement string, params map[string]any, commit bool, out io.Writer) error {
	tx, err := db.BeginTransaction()
	if err != nil {
		return err
	}
	defer tx.Close()

	stream, err := tx.Run(statement, params)
	if err != nil {
		return err
	}
	for stream.Next() {
		record := stream.Record()
		fields := make([]string, 0, len(record.Keys))
		for i, key := range record.Keys {
			fields = append(fields, fmt.Sprintf("%s=%v", key, record.Values[i]))
		}
		fmt.Fprintln(out, strings.Join(fields, "\t"))
	}
	if err := stream.Err(); err != nil {
		return err
	}

	if commit {
		tx.Success()
	}
	return tx.Close()
}

func indexesCmd() *cobra.Command {
	var dialectName string

	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Inspect and reconcile indexes",
	}
	cmd.PersistentFlags().StringVar(&dialectName, "dialect", "auto", "index dialect: auto, legacy or schema")

	managerFor := func(db *bolt.Database) (*bolt.IndexManager, error) {
		var dialect bolt.IndexDialect
		switch dialectName {
		case "auto":
			detected, err := db.DetectDialect()
			if err != nil {
				return nil, err
			}
			dialect = detected
		case "legacy":
			dialect = bolt.DialectFor("3.5")
		case "schema":
			dialect = bolt.DialectFor("5.0")
		default:
			return nil, fmt.Errorf("unknown dialect %q", dialectName)
		}
		return bolt.NewIndexManager(db, dialect), nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List managed indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Shutdown()

			manager, err := managerFor(db)
			if err != nil {
				return err
			}
			indexes, err := manager.Existing()
			if err != nil {
				return err
			}
			for _, index := range indexes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", index.Name, index.Identifier, index.State)
			}
			return nil
		},
	}

	var specs []string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Create missing indexes and drop all others",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desired, err := parseIndexSpecs(specs)
			if err != nil {
				return err
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer db.Shutdown()

			manager, err := managerFor(db)
			if err != nil {
				return err
			}
			report, err := manager.Reconcile(desired)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created=%d dropped=%d failed=%d\n", report.Created, report.Dropped, report.Failed)
			return nil
		},
	}
	reconcile.Flags().StringArrayVar(&specs, "index", nil, "desired index as Type.property[:plain|text|fulltext] (repeatable)")

	cmd.AddCommand(list, reconcile)
	return cmd
}

func parseParams(values []string) (map[string]any, error) {
	params := map[string]any{}
	for _, value := range values {
		key, v, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", value)
		}
		params[key] = v
	}
	return params, nil
}

func parseIndexSpecs(values []string) ([]bolt.IndexConfig, error) {
	var configs []bolt.IndexConfig
	for _, value := range values {
		target, kindName, _ := strings.Cut(value, ":")
		typeName, property, ok := strings.Cut(target, ".")
		if !ok || typeName == "" || property == "" {
			return nil, fmt.Errorf("invalid index %q, expected Type.property[:kind]", value)
		}
		kind, err := bolt.ParseIndexKind(kindName)
		if err != nil {
			return nil, err
		}
		configs = append(configs, bolt.IndexConfig{Type: typeName, Property: property, Kind: kind})
	}
	return configs, nil
}
