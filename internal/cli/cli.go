package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/sebamiro/nearrpc"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go/support/log"
	"github.com/vmihailenco/msgpack/v5"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "nearrpc [options] <command> [args]")
	fmt.Fprintln(w, "Commands: methods, status, health, block [final|optimistic|near-final|<height>|<hash>],")
	fmt.Fprintln(w, "          gas-price [<height>|<hash>], validators [<height>|<hash>], call <method> [params-json]")
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nearrpc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		usage(stderr)
		fs.PrintDefaults()
	}
	url := fs.String("url", "", "node JSON-RPC endpoint (env "+EnvURL+")")
	configPath := fs.String("config", "", "JSON config file")
	format := fs.String("format", "", "output format: json or msgpack")
	timeout := fs.Duration("timeout", 0, "overall deadline for the call, 0 for none")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return 2
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		if err := LoadConfig(*configPath, &cfg); err != nil {
			fmt.Fprintf(stderr, "nearrpc: %v\n", err)
			return 1
		}
	}
	cfg.applyEnv()
	if *url != "" {
		cfg.URL = *url
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintf(stderr, "nearrpc: %v\n", err)
		return 2
	}

	logger := log.New()
	logger.SetLevel(logrus.WarnLevel)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	logger = logger.WithField("pkg", "nearrpc")

	if cmd := fs.Arg(0); cmd == "methods" {
		printMethods(stdout)
		return 0
	}

	client, err := nearrpc.NewClient(cfg.URL, nearrpc.WithConfig(cfg.rpcConfig()), nearrpc.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "nearrpc: %v\n", err)
		return 1
	}
	defer client.Close()

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := runCommand(ctx, client, fs.Arg(0), fs.Args()[1:])
	if err != nil {
		printError(stderr, err)
		return 1
	}
	logger.WithField("duration", time.Since(start)).Debugf("%s done", fs.Arg(0))

	if err := write(stdout, cfg.Format, result); err != nil {
		fmt.Fprintf(stderr, "nearrpc: %v\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("bad arguments")

func runCommand(ctx context.Context, c *nearrpc.Client, cmd string, args []string) (any, error) {
	switch cmd {
	case "status":
		return c.Status(ctx)
	case "health":
		if err := c.Health(ctx); err != nil {
			return nil, err
		}
		return map[string]bool{"healthy": true}, nil
	case "block":
		ref := nearrpc.BlockRefFinality(nearrpc.FinalityFinal)
		if len(args) > 0 {
			ref = parseBlockRef(args[0])
		}
		return c.Block(ctx, ref)
	case "gas-price":
		return c.GasPrice(ctx, optionalBlockID(args))
	case "validators":
		return c.Validators(ctx, optionalBlockID(args))
	case "call":
		if len(args) == 0 || len(args) > 2 {
			return nil, fmt.Errorf("%w: call <method> [params-json]", errUsage)
		}
		var params any
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return nil, fmt.Errorf("%w: params are not valid JSON", errUsage)
			}
			params = json.RawMessage(args[1])
		}
		var result json.RawMessage
		if err := c.CallResult(ctx, args[0], &result, params); err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func parseBlockRef(s string) nearrpc.BlockReference {
	switch f := nearrpc.Finality(s); f {
	case nearrpc.FinalityFinal, nearrpc.FinalityOptimistic, nearrpc.FinalityNearFinal:
		return nearrpc.BlockRefFinality(f)
	}
	return nearrpc.BlockRefID(nearrpc.ParseBlockID(s))
}

func optionalBlockID(args []string) *nearrpc.BlockID {
	if len(args) == 0 {
		return nil
	}
	id := nearrpc.ParseBlockID(args[0])
	return &id
}

func printMethods(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCLIENT\tPARAMS\tRESULT")
	for _, m := range nearrpc.Methods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Op, m.Params, m.Result)
	}
	tw.Flush()
}

func printError(w io.Writer, err error) {
	var rpcErr *nearrpc.Error
	if errors.As(err, &rpcErr) {
		fmt.Fprintf(w, "nearrpc: %s (code %d): %s\n", rpcErr.Kind, rpcErr.Code, rpcErr.Message)
		if len(rpcErr.Data) > 0 {
			fmt.Fprintf(w, "  data: %s\n", rpcErr.Data)
		}
		return
	}
	fmt.Fprintf(w, "nearrpc: %v\n", err)
}

func write(w io.Writer, format string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if format == FormatMsgpack {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			return err
		}
		return msgpack.NewEncoder(w).Encode(normalizeNumbers(generic))
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(w)
	return err
}

// normalizeNumbers turns json.Number leaves into integers where they fit so
// heights and nonces stay exact in msgpack.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(t), 10, 64); err == nil {
			return u
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	}
	return v
}
