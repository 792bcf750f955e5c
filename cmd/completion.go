package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_timevault() {
    local cur prev words cword
    _init_completion || return

    local commands="init keys airdrop balance open release status simulate warp history compact help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        keys)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "new ls rm export import" -- "$cur"))
            elif [[ "${words[2]}" == "export" || "${words[2]}" == "import" ]] && [[ $cword -eq 4 ]]; then
                _filedir
            else
                COMPREPLY=($(compgen -W "$(_timevault_identities)" -- "$cur"))
            fi
            ;;
        open)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--duration --amount" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(_timevault_identities)" -- "$cur"))
            fi
            ;;
        simulate)
            if [[ $cword -eq 2 ]]; then
                COMPREPLY=($(compgen -W "open release" -- "$cur"))
            elif [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "--duration --amount" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(_timevault_identities)" -- "$cur"))
            fi
            ;;
        airdrop|balance|release|status)
            COMPREPLY=($(compgen -W "$(_timevault_identities)" -- "$cur"))
            ;;
        history)
            COMPREPLY=($(compgen -W "-n" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

_timevault_identities() {
    timevault keys ls 2>/dev/null | grep -E '^[ !] [^ ]' | awk '{print $2}'
}

complete -F _timevault timevault
`

const zshCompletion = `#compdef timevault

_timevault() {
    local -a commands
    commands=(
        'init:Create a .timevault ledger in current directory'
        'keys:Manage identities and their keys'
        'airdrop:Credit SOL from the local faucet'
        'balance:Show a spendable balance'
        'open:Lock SOL in a time vault'
        'release:Release an unlocked vault'
        'status:Show vault status'
        'simulate:Dry-run open or release'
        'warp:Move the ledger clock forward'
        'history:Show recent invocations'
        'compact:Compact ledger to reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'timevault commands' commands
            ;;
        args)
            case "${words[2]}" in
                keys)
                    if (( CURRENT == 3 )); then
                        _values 'subcommand' new ls rm export import
                    elif [[ "${words[3]}" == (export|import) ]] && (( CURRENT == 5 )); then
                        _files
                    else
                        _timevault_identities
                    fi
                    ;;
                open)
                    _arguments \
                        '--duration[Lock duration, e.g. 24h or seconds]:duration' \
                        '--amount[Amount in SOL]:amount' \
                        '*:identity:_timevault_identities'
                    ;;
                simulate)
                    if (( CURRENT == 3 )); then
                        _values 'operation' open release
                    else
                        _arguments \
                            '--duration[Lock duration]:duration' \
                            '--amount[Amount in SOL]:amount' \
                            '*:identity:_timevault_identities'
                    fi
                    ;;
                airdrop|balance|release|status)
                    _timevault_identities
                    ;;
                history)
                    _arguments '-n[Number of receipts]:count'
                    ;;
                help)
                    _describe -t commands 'timevault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_timevault_identities() {
    local -a ids
    ids=(${(f)"$(timevault keys ls 2>/dev/null | grep -E '^[ !] [^ ]' | awk '{print $2}')"})
    _describe -t identities 'identities' ids
}

_timevault "$@"
`

const fishCompletion = `# timevault fish completions

set -l commands init keys airdrop balance open release status simulate warp history compact help completion

complete -c timevault -f

function __timevault_identities
    timevault keys ls 2>/dev/null | string match -r '^[ !] \S+' | string replace -r '^[ !] ' ''
end

# Commands
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a .timevault ledger'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a keys -d 'Manage identities'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a airdrop -d 'Credit SOL from the faucet'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a balance -d 'Show a balance'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a open -d 'Lock SOL in a vault'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a release -d 'Release an unlocked vault'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault status'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a simulate -d 'Dry-run open or release'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a warp -d 'Move the ledger clock'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a history -d 'Show recent invocations'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact ledger'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c timevault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# keys subcommands
complete -c timevault -n "__fish_seen_subcommand_from keys; and not __fish_seen_subcommand_from new ls rm export import" -a "new ls rm export import"
complete -c timevault -n "__fish_seen_subcommand_from rm export" -a "(__timevault_identities)"
complete -c timevault -n "__fish_seen_subcommand_from export import" -F

# vault commands
complete -c timevault -n "__fish_seen_subcommand_from airdrop balance open release status" -a "(__timevault_identities)"
complete -c timevault -n "__fish_seen_subcommand_from open simulate" -l duration -d 'Lock duration' -r
complete -c timevault -n "__fish_seen_subcommand_from open simulate" -l amount -d 'Amount in SOL' -r
complete -c timevault -n "__fish_seen_subcommand_from simulate; and not __fish_seen_subcommand_from open release" -a "open release"
complete -c timevault -n "__fish_seen_subcommand_from history" -s n -d 'Number of receipts' -r

# help completions
complete -c timevault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c timevault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
