// Command strata is a small inspection and manipulation tool for parquet
// tables built on the strata library.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/logger"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata - typed columnar access to parquet tables",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default $HOME/.strata.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-encoding", "console", "log encoding (console, json)")

	root.AddCommand(versionCmd(), inspectCmd(), headCmd(), filterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command) error {
	if cfg, _ := cmd.Flags().GetString("config"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".strata")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("STRATA")
	viper.AutomaticEnv()
	if err := viper.BindPFlag("log_level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	if err := viper.BindPFlag("log_encoding", cmd.Flags().Lookup("log-encoding")); err != nil {
		return err
	}
	// A missing config file is fine; only report parse failures.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return err
		}
	}

	return logger.Init(logger.Config{
		Level:    viper.GetString("log_level"),
		Encoding: viper.GetString("log_encoding"),
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Strata v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

type tableInfo struct {
	Path    string       `json:"path"`
	Rows    int          `json:"rows"`
	Cols    int          `json:"cols"`
	Columns []columnInfo `json:"columns"`
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print schema and row counts of a parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := frame.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info := tableInfo{
				Path: args[0],
				Rows: f.NumRows(),
				Cols: f.NumCols(),
			}
			for _, c := range f.Columns() {
				info.Columns = append(info.Columns, columnInfo{Name: c.Name, Type: c.Type.String()})
			}
			return printJSON(info)
		},
	}
}

func headCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the first rows of a parquet file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := frame.Scan(args[0]).Head(n).Collect()
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := frameRows(f)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := printJSON(row); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "number of rows to print")
	return cmd
}

func filterCmd() *cobra.Command {
	var (
		col     string
		opName  string
		valType string
		value   string
	)
	cmd := &cobra.Command{
		Use:   "filter <in-file> <out-file>",
		Short: "Copy rows matching a predicate into a new parquet file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOp(opName)
			if err != nil {
				return err
			}
			b := frame.Scan(args[0])
			switch valType {
			case "int64":
				v, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return err
				}
				b.FilterInt64(col, op, v)
			case "float64":
				v, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return err
				}
				b.FilterFloat64(col, op, v)
			case "string":
				b.FilterString(col, op, value)
			case "bool":
				v, err := strconv.ParseBool(value)
				if err != nil {
					return err
				}
				b.FilterBool(col, op, v)
			default:
				return fmt.Errorf("unsupported value type %q", valType)
			}

			f, err := b.Collect()
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeFrame(f, args[1]); err != nil {
				return err
			}
			fmt.Printf("wrote %d rows to %s\n", f.NumRows(), args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&col, "column", "", "column to filter on")
	cmd.Flags().StringVar(&opName, "op", "eq", "operator (eq, ne, lt, le, gt, ge)")
	cmd.Flags().StringVar(&valType, "type", "float64", "operand type (int64, float64, string, bool)")
	cmd.Flags().StringVar(&value, "value", "", "operand value")
	_ = cmd.MarkFlagRequired("column")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func parseOp(s string) (engine.FilterOp, error) {
	switch s {
	case "eq":
		return engine.Eq, nil
	case "ne":
		return engine.Ne, nil
	case "lt":
		return engine.Lt, nil
	case "le":
		return engine.Le, nil
	case "gt":
		return engine.Gt, nil
	case "ge":
		return engine.Ge, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

// frameRows materializes the frame as generic row maps for display.
func frameRows(f *frame.Frame) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, f.NumRows())
	for i := range rows {
		rows[i] = make(map[string]interface{}, f.NumCols())
	}

	for _, info := range f.Columns() {
		switch info.Type {
		case engine.TypeInt32:
			col, err := frame.Column[int32](f, info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range col.All() {
				rows[i][info.Name] = v
			}
		case engine.TypeInt64:
			col, err := frame.Column[int64](f, info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range col.All() {
				rows[i][info.Name] = v
			}
		case engine.TypeUint64:
			col, err := frame.Column[uint64](f, info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range col.All() {
				rows[i][info.Name] = v
			}
		case engine.TypeFloat32:
			col, err := frame.Column[float32](f, info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range col.All() {
				rows[i][info.Name] = v
			}
		case engine.TypeFloat64:
			col, err := frame.Column[float64](f, info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range col.All() {
				rows[i][info.Name] = v
			}
		case engine.TypeString:
			vals, err := f.StringColumn(info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				rows[i][info.Name] = v
			}
		case engine.TypeBool:
			vals, err := f.BoolColumn(info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				rows[i][info.Name] = v
			}
		case engine.TypeDatetime:
			vals, err := f.TimeColumn(info.Name)
			if err != nil {
				return nil, err
			}
			for i, v := range vals {
				rows[i][info.Name] = v.Format(time.RFC3339)
			}
		default:
			return nil, fmt.Errorf("column %q has unsupported type", info.Name)
		}
	}
	return rows, nil
}

// writeFrame copies every column of the frame into a new parquet file.
func writeFrame(f *frame.Frame, path string) error {
	w := engine.NewWriter(path)
	for _, info := range f.Columns() {
		var err error
		switch info.Type {
		case engine.TypeInt32:
			err = copyColumn(f, w.AddInt32Column, info.Name)
		case engine.TypeInt64:
			err = copyColumn(f, w.AddInt64Column, info.Name)
		case engine.TypeUint64:
			err = copyColumn(f, w.AddUint64Column, info.Name)
		case engine.TypeFloat32:
			err = copyColumn(f, w.AddFloat32Column, info.Name)
		case engine.TypeFloat64:
			err = copyColumn(f, w.AddFloat64Column, info.Name)
		case engine.TypeString:
			var vals []string
			if vals, err = f.StringColumn(info.Name); err == nil {
				err = w.AddStringColumn(info.Name, vals)
			}
		case engine.TypeBool:
			var vals []bool
			if vals, err = f.BoolColumn(info.Name); err == nil {
				err = w.AddBoolColumn(info.Name, vals)
			}
		case engine.TypeDatetime:
			col, cerr := f.DatetimeColumn(info.Name)
			if cerr != nil {
				err = cerr
				break
			}
			millis := make([]int64, 0, col.Len())
			for v := range col.Values() {
				millis = append(millis, v)
			}
			err = w.AddDatetimeColumn(info.Name, millis)
		default:
			err = fmt.Errorf("column %q has unsupported type", info.Name)
		}
		if err != nil {
			return err
		}
	}
	return w.Finish()
}

func copyColumn[T frame.Scalar](f *frame.Frame, add func(string, []T) error, name string) error {
	col, err := frame.Column[T](f, name)
	if err != nil {
		return err
	}
	vals := make([]T, 0, col.Len())
	for v := range col.Values() {
		vals = append(vals, v)
	}
	return add(name, vals)
}

func printJSON(v interface{}) error {
	out, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
