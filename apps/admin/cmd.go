package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/madrasa/core/account"
	"github.com/trezcool/madrasa/core/otp"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoPassword = errors.New("no password entered")
)

type commandLine struct {
	accountSvc *account.Service
	allowList  *otp.AllowListManager
	db         *sql.DB // nil unless the postgres engine is configured
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL [-name NAME] [-role student|admin] - create an account; students are prompted for a password")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  setactive -email EMAIL [-active=false] - enable or disable sign-in")
	fmt.Fprintln(cli.out, "  allowlist add|remove EMAIL - manage the admin e-mails allowed to request codes")
	fmt.Fprintln(cli.out, "  allowlist list - print the stored allow-list")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migrations (postgres only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The account's email.")
	addUserName := addUserCmd.String("name", "", "The account's display name.")
	addUserRole := addUserCmd.String("role", "student", "student or admin. Admins sign in with e-mailed codes and get no password.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	setActiveCmd := flag.NewFlagSet("setactive", flag.ContinueOnError)
	setActiveEmail := setActiveCmd.String("email", "", "The account's email.")
	setActiveValue := setActiveCmd.Bool("active", true, "Whether the account may sign in.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, setActiveCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role, err := account.ParseRole(*addUserRole)
		if err != nil {
			return err
		}
		var pwd string
		if role == account.RoleStudent {
			if pwd, err = cli.promptPassword(); err != nil {
				if err == errNoPassword {
					addUserCmd.Usage()
					return errHelp
				}
				return err
			}
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, role, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errNoPassword {
				resetPasswordCmd.Usage()
				return errHelp
			}
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "setactive":
		if err := setActiveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setActiveEmail == "" {
			setActiveCmd.Usage()
			return errHelp
		}
		return cli.setActive(ctx, *setActiveEmail, *setActiveValue)

	case "allowlist":
		return cli.allowListCmd(ctx, args[2:])

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	return string(pwd), nil
}
