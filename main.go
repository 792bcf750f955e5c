package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/timevault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "keys":
		runKeys(ctx, os.Args[2:])
	case "airdrop":
		runAirdrop(ctx, os.Args[2:])
	case "balance":
		runBalance(ctx, os.Args[2:])
	case "open":
		runOpen(ctx, os.Args[2:])
	case "release":
		runRelease(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "simulate":
		runSimulate(ctx, os.Args[2:])
	case "warp":
		runWarp(ctx, os.Args[2:])
	case "history":
		runHistory(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parseArgs parses flags that may appear before, between or after
// positional arguments and returns the positional ones
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// requireArgs exits with the command's usage unless n positional arguments
// were given
func requireArgs(command string, args []string, n int) {
	if len(args) != n {
		fmt.Fprintf(os.Stderr, "Error: '%s' expects %d argument(s), got %d\n\n", command, n, len(args))
		printCommandHelp(command)
		os.Exit(1)
	}
}

// optionalArg returns the single optional positional argument, or "" to
// fall back to the default identity
func optionalArg(command string, args []string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return args[0]
	}
	requireArgs(command, args, 1)
	return ""
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	requireArgs("init", parseArgs(fs, args), 0)

	cmd.Init(ctx)
}

func runKeys(ctx context.Context, args []string) {
	if len(args) < 1 {
		printCommandHelp("keys")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("keys "+args[0], flag.ExitOnError)
	rest := parseArgs(fs, args[1:])

	switch args[0] {
	case "new":
		requireArgs("keys", rest, 1)
		cmd.KeysNew(ctx, rest[0])
	case "ls", "list":
		requireArgs("keys", rest, 0)
		cmd.KeysList(ctx)
	case "rm":
		requireArgs("keys", rest, 1)
		cmd.KeysRemove(ctx, rest[0])
	case "export":
		requireArgs("keys", rest, 2)
		cmd.KeysExport(ctx, rest[0], rest[1])
	case "import":
		requireArgs("keys", rest, 2)
		cmd.KeysImport(ctx, rest[0], rest[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown keys subcommand: %s\n", args[0])
		printCommandHelp("keys")
		os.Exit(1)
	}
}

func runAirdrop(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("airdrop", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("airdrop", rest, 2)

	cmd.Airdrop(ctx, rest[0], rest[1])
}

func runBalance(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	cmd.Balance(ctx, optionalArg("balance", parseArgs(fs, args)))
}

func runOpen(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	duration := fs.String("duration", "", "Lock duration (e.g. 3600, 90m, 24h)")
	amount := fs.String("amount", "", "Amount to lock in SOL")
	name := optionalArg("open", parseArgs(fs, args))

	if *duration == "" || *amount == "" {
		fmt.Fprintln(os.Stderr, "Error: --duration and --amount are required")
		os.Exit(1)
	}
	cmd.Open(ctx, name, *duration, *amount)
}

func runRelease(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("release", flag.ExitOnError)
	cmd.Release(ctx, optionalArg("release", parseArgs(fs, args)))
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cmd.Status(ctx, optionalArg("status", parseArgs(fs, args)))
}

func runSimulate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	duration := fs.String("duration", "0", "Lock duration for open")
	amount := fs.String("amount", "0", "Amount in SOL for open")
	rest := parseArgs(fs, args)

	if len(rest) < 1 || len(rest) > 2 {
		printCommandHelp("simulate")
		os.Exit(1)
	}
	name := ""
	if len(rest) == 2 {
		name = rest[1]
	}
	cmd.Simulate(ctx, rest[0], name, *duration, *amount)
}

func runWarp(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("warp", flag.ExitOnError)
	rest := parseArgs(fs, args)
	requireArgs("warp", rest, 1)

	cmd.Warp(ctx, rest[0])
}

func runHistory(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 20, "Number of receipts to show (0 for all)")
	requireArgs("history", parseArgs(fs, args), 0)

	cmd.History(ctx, *limit)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	requireArgs("compact", parseArgs(fs, args), 0)

	cmd.Compact(ctx)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: timevault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("timevault - Time-locked SOL custody on a local ledger")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  timevault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .timevault ledger in current directory")
	fmt.Println("  keys        Manage identities (new, ls, rm, export, import)")
	fmt.Println("  airdrop     Credit SOL from the local faucet")
	fmt.Println("  balance     Show a spendable balance")
	fmt.Println("  open        Lock SOL in a time vault")
	fmt.Println("  release     Release an unlocked vault to its owner")
	fmt.Println("  status      Show vault status")
	fmt.Println("  simulate    Dry-run open or release and show the changes")
	fmt.Println("  warp        Move the ledger clock forward")
	fmt.Println("  history     Show recent invocations")
	fmt.Println("  compact     Compact ledger to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  timevault init                                # Create new ledger")
	fmt.Println("  timevault keys new alice                      # Create identity")
	fmt.Println("  timevault airdrop alice 2                     # Fund it with 2 SOL")
	fmt.Println("  timevault open alice --duration 1h --amount 1 # Lock 1 SOL for an hour")
	fmt.Println("  timevault release alice                       # Withdraw once unlocked")
	fmt.Println()
	fmt.Println("Use 'timevault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("timevault init")
		fmt.Println()
		fmt.Println("Creates a .timevault directory holding the ledger database and config.yaml.")
		fmt.Println("Identity keys are kept in the OS keyring, never in the ledger.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault init")
	case "keys":
		fmt.Println("timevault keys <new|ls|rm|export|import> [arguments]")
		fmt.Println()
		fmt.Println("Manages the identities that sign vault invocations.")
		fmt.Println()
		fmt.Println("Subcommands:")
		fmt.Println("  new <name>                Generate a key and store it in the OS keyring")
		fmt.Println("  ls                        List identities, balances and vaults")
		fmt.Println("  rm <name>                 Forget an identity (refused while it has a vault)")
		fmt.Println("  export <name> <file>      Write the key sealed with a passphrase")
		fmt.Println("  import <name> <file>      Restore a key from an exported file")
		fmt.Println()
		fmt.Println("Key files must live inside the current directory.")
		fmt.Println("Set TIMEVAULT_PASSPHRASE to skip the passphrase prompt.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  timevault keys new alice")
		fmt.Println("  timevault keys export alice alice.key")
	case "airdrop":
		fmt.Println("timevault airdrop <identity|address> <sol>")
		fmt.Println()
		fmt.Println("Credits SOL from the local faucet to a wallet account.")
		fmt.Println("Vault addresses cannot receive airdrops.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault airdrop alice 2.5")
	case "balance":
		fmt.Println("timevault balance [identity|address]")
		fmt.Println()
		fmt.Println("Shows the spendable balance. Without an argument the")
		fmt.Println("default identity from config.yaml or TIMEVAULT_IDENTITY is used.")
	case "open":
		fmt.Println("timevault open [identity] --duration <d> --amount <sol>")
		fmt.Println()
		fmt.Println("Locks SOL in the identity's vault until the ledger clock reaches")
		fmt.Println("now + duration. Each identity can hold one vault at a time.")
		fmt.Println("An allocation deposit is charged and refunded on release.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --duration   Lock duration in seconds or as 90m, 24h, ...")
		fmt.Println("  --amount     Amount to lock in SOL")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault open alice --duration 3600 --amount 1")
	case "release":
		fmt.Println("timevault release [identity]")
		fmt.Println()
		fmt.Println("Pays the whole vault balance and the deposit back to the owner")
		fmt.Println("once the unlock time has been reached.")
	case "status":
		fmt.Println("timevault status [identity]")
		fmt.Println()
		fmt.Println("Shows the vault address, balance, unlock time and remaining lock.")
	case "simulate":
		fmt.Println("timevault simulate <open|release> [identity] [--duration <d>] [--amount <sol>]")
		fmt.Println()
		fmt.Println("Runs the invocation against the ledger and rolls it back,")
		fmt.Println("printing the account changes it would make.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault simulate open alice --duration 1h --amount 1")
	case "warp":
		fmt.Println("timevault warp <duration>")
		fmt.Println()
		fmt.Println("Moves the ledger clock forward. The clock never moves backwards.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault warp 1h")
	case "history":
		fmt.Println("timevault history [-n <count>]")
		fmt.Println()
		fmt.Println("Shows the most recent invocation receipts, newest first.")
	case "compact":
		fmt.Println("timevault compact")
		fmt.Println()
		fmt.Println("Compacts the ledger database to reclaim unused disk space.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  timevault compact")
	case "completion":
		fmt.Println("timevault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(timevault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(timevault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  timevault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
