package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillmate/plugin/ai/task"
	"github.com/hrygo/quillmate/server/service/companion"
)

var (
	taskFile   string
	taskUser   string
	taskOwner  bool
	taskStream bool
)

var taskCmd = &cobra.Command{
	Use:   "task <mode> [context]",
	Short: "Run one background task and print the result",
	Long: fmt.Sprintf(`Runs a task through the task client. Modes: %s.
Context is read from --file, the second argument, or stdin when it is "-".`, modeList()),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contextInfo, err := taskContext(args)
		if err != nil {
			return err
		}
		p, err := loadProfile(viper.New())
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer a.Close()

		req := &companion.TaskRequest{
			Mode:        args[0],
			ContextInfo: contextInfo,
			User:        companion.User{Name: taskUser, IsOwner: taskOwner},
		}
		out := cmd.OutOrStdout()
		if taskStream {
			for chunk, err := range a.companion.ExecuteTaskStream(cmd.Context(), req) {
				if err != nil {
					return err
				}
				fmt.Fprint(out, chunk)
			}
			fmt.Fprintln(out)
			return nil
		}

		res, err := a.companion.ExecuteTask(cmd.Context(), req)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("%s task failed: %s", res.StrategyName, res.ErrorMessage)
		}
		fmt.Fprintln(out, res.Response)
		return nil
	},
}

func init() {
	taskCmd.Flags().StringVarP(&taskFile, "file", "f", "", "read the task context from a file")
	taskCmd.Flags().StringVar(&taskUser, "user", "", "user name passed to the prompt")
	taskCmd.Flags().BoolVar(&taskOwner, "owner", true, "run as the blog owner")
	taskCmd.Flags().BoolVar(&taskStream, "stream", false, "print chunks as they arrive")
}

func taskContext(args []string) (string, error) {
	switch {
	case taskFile != "":
		raw, err := os.ReadFile(taskFile)
		return string(raw), err
	case len(args) == 2 && args[1] == "-":
		raw, err := io.ReadAll(os.Stdin)
		return string(raw), err
	case len(args) == 2:
		return args[1], nil
	}
	return "", nil
}

func modeList() string {
	modes := task.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = strings.ToLower(string(m))
	}
	return strings.Join(names, ", ")
}
