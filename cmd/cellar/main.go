package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuemby/cellar/pkg/api"
	"github.com/cuemby/cellar/pkg/client"
	cellarconfig "github.com/cuemby/cellar/pkg/config"
	"github.com/cuemby/cellar/pkg/healthsrv"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/log"
	"github.com/cuemby/cellar/pkg/manager"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cellar",
	Short: "Cellar - a replicated Cypress metadata tree and transaction cell",
	Long: `Cellar is a single metadata-cell server: a versioned, transactional
tree (Cypress) backed by Raft replication, with a lightweight transaction
manager and scheduler operation lifecycle layered on top.

Run "cellar cluster init" to bootstrap the first node of a cell, then use
the get/set/create/lock/txn/operation commands to drive it.`,
	Version: Version,
}

func init() {
	cellarconfig.BindFlags(rootCmd)
	cobra.OnInitialize(initLogging)

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cellar version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(cliInitCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(getAttrCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(setAttrCmd)
	rootCmd.AddCommand(removeAttrCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(txnCmd)
	rootCmd.AddCommand(operationCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// newClient dials the manager at --manager using the CLI's stored
// certificate, the same connect-then-defer-Close idiom every read/write
// subcommand below shares.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("manager")
	return client.NewClient(addr)
}

func parseTxnID(cmd *cobra.Command) (ids.ID, error) {
	raw, _ := cmd.Flags().GetString("txn")
	if raw == "" {
		return ids.Nil, nil
	}
	return ids.Parse(raw)
}

func addManagerFlag(cmd *cobra.Command) {
	cmd.Flags().String("manager", "127.0.0.1:8080", "Manager API address")
}

func addTxnFlag(cmd *cobra.Command) {
	cmd.Flags().String("txn", "", "Transaction ID to operate under (omit for the trunk)")
}

// ---------------------------------------------------------------------
// Cluster lifecycle
// ---------------------------------------------------------------------

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage the cellar cluster",
}

var clusterInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a new cell with this node as the first manager",
	Long: `Bootstrap a new cell with this node as the first manager.

This starts the cellar manager in single-node mode; it forms a Raft
quorum automatically once additional managers join.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cellarconfig.Load(cmd)
		if err != nil {
			return err
		}

		fmt.Println("Initializing cellar cluster...")
		fmt.Printf("  Node ID: %s\n", cfg.NodeID)
		fmt.Printf("  Cell Tag: %d\n", cfg.CellTag)
		fmt.Printf("  Raft Address: %s\n", cfg.BindAddr)
		fmt.Printf("  API Address: %s\n", cfg.APIAddr)
		fmt.Printf("  Data Directory: %s\n", cfg.DataDir)
		fmt.Println()

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:           cfg.NodeID,
			BindAddr:         cfg.BindAddr,
			DataDir:          cfg.DataDir,
			CellTag:          cfg.CellTag,
			RetentionDelay:   cfg.RetentionDelay,
			ArchiveBatchSize: cfg.ArchiveBatchSize,
			ArchiveBatchWait: cfg.ArchiveBatchWait,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		if err := mgr.Bootstrap(); err != nil {
			return fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
		fmt.Println("✓ Cluster initialized successfully")

		mgr.Start()
		fmt.Println("✓ Scheduler, cleaner, and metrics collector started")

		health := healthsrv.NewServer(mgr)
		healthErrCh := make(chan error, 1)
		go func() {
			if err := health.Start(cfg.MetricsAddr); err != nil {
				healthErrCh <- fmt.Errorf("health/metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.MetricsAddr)
		fmt.Printf("✓ Health endpoints: http://%s/health, http://%s/ready\n", cfg.MetricsAddr, cfg.MetricsAddr)

		apiServer, err := api.NewServer(mgr)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		apiErrCh := make(chan error, 1)
		go func() {
			if err := apiServer.Start(cfg.APIAddr); err != nil {
				apiErrCh <- fmt.Errorf("API server error: %w", err)
			}
		}()
		time.Sleep(500 * time.Millisecond)
		fmt.Printf("✓ gRPC API listening on %s\n", cfg.APIAddr)

		printJoinTokens(mgr, cfg.APIAddr)

		fmt.Println("Manager is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-apiErrCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		case err := <-healthErrCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		apiServer.Stop()
		if err := mgr.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}
		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func printJoinTokens(mgr *manager.Manager, apiAddr string) {
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Join Tokens (valid for 24 hours)")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	managerToken, err := mgr.GenerateJoinToken("manager")
	if err == nil {
		fmt.Println("Manager Token:")
		fmt.Printf("  %s\n", managerToken.Token)
		fmt.Println()
		fmt.Println("To add a manager node:")
		fmt.Printf("  cellar cluster join --leader %s --token %s\n", apiAddr, managerToken.Token)
		fmt.Println()
	}

	cliToken, err := mgr.GenerateJoinToken("cli")
	if err == nil {
		fmt.Println("CLI Token (for remote CLI access):")
		fmt.Printf("  %s\n", cliToken.Token)
		fmt.Println()
		fmt.Println("To initialize the CLI:")
		fmt.Printf("  cellar init --manager %s --token %s\n", apiAddr, cliToken.Token)
		fmt.Println()
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

var clusterJoinTokenCmd = &cobra.Command{
	Use:   "join-token [manager|cli]",
	Short: "Generate a join token for an additional manager or CLI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := args[0]
		if role != "manager" && role != "cli" {
			return fmt.Errorf("role must be 'manager' or 'cli'")
		}

		c, err := newClient(cmd)
		if err != nil {
			return fmt.Errorf("failed to connect to manager: %w", err)
		}
		defer c.Close()

		resp, err := c.GenerateJoinToken(role)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		addr, _ := cmd.Flags().GetString("manager")
		fmt.Printf("Join token for %s:\n\n", role)
		fmt.Printf("    %s\n\n", resp.Token)
		fmt.Println("This token expires in 24 hours.")
		if role == "manager" {
			fmt.Printf("\nTo join a manager to the cluster, run:\n    cellar cluster join --token %s --leader %s\n", resp.Token, addr)
		} else {
			fmt.Printf("\nTo initialize a CLI, run:\n    cellar init --manager %s --token %s\n", addr, resp.Token)
		}
		return nil
	},
}

var clusterJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join this node to an existing cell as an additional manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cellarconfig.Load(cmd)
		if err != nil {
			return err
		}
		leader, _ := cmd.Flags().GetString("leader")
		token, _ := cmd.Flags().GetString("token")
		if leader == "" {
			return fmt.Errorf("--leader is required")
		}
		if token == "" {
			return fmt.Errorf("--token is required")
		}

		fmt.Printf("Joining cell via leader %s...\n", leader)

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:           cfg.NodeID,
			BindAddr:         cfg.BindAddr,
			DataDir:          cfg.DataDir,
			CellTag:          cfg.CellTag,
			RetentionDelay:   cfg.RetentionDelay,
			ArchiveBatchSize: cfg.ArchiveBatchSize,
			ArchiveBatchWait: cfg.ArchiveBatchWait,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}

		if err := mgr.Join(leader, token); err != nil {
			return fmt.Errorf("failed to join cluster: %w", err)
		}
		fmt.Println("✓ Joined cluster successfully")

		mgr.Start()

		health := healthsrv.NewServer(mgr)
		go func() { _ = health.Start(cfg.MetricsAddr) }()

		apiServer, err := api.NewServer(mgr)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		go func() { _ = apiServer.Start(cfg.APIAddr) }()
		fmt.Printf("✓ gRPC API listening on %s\n", cfg.APIAddr)

		fmt.Println("Manager is running. Press Ctrl+C to stop.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		apiServer.Stop()
		if err := mgr.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}
		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

var clusterInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display cell/cluster information",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return fmt.Errorf("failed to connect to manager: %w", err)
		}
		defer c.Close()

		info, err := c.GetClusterInfo()
		if err != nil {
			return fmt.Errorf("failed to get cluster info: %w", err)
		}

		fmt.Println("Cluster Information:")
		fmt.Printf("  Leader Address: %s\n", info.LeaderAddr)
		fmt.Printf("  Servers: %d\n", len(info.Servers))
		fmt.Println()
		fmt.Println("Raft Servers:")
		for _, server := range info.Servers {
			fmt.Printf("  - ID: %s\n", server.ID)
			fmt.Printf("    Address: %s\n", server.Address)
			fmt.Printf("    Suffrage: %s\n", server.Suffrage)
			fmt.Println()
		}
		return nil
	},
}

func init() {
	clusterCmd.AddCommand(clusterInitCmd)
	clusterCmd.AddCommand(clusterJoinTokenCmd)
	clusterCmd.AddCommand(clusterJoinCmd)
	clusterCmd.AddCommand(clusterInfoCmd)

	clusterJoinCmd.Flags().String("leader", "", "Address of an existing manager to join through")
	clusterJoinCmd.Flags().String("token", "", "Join token from the leader")

	addManagerFlag(clusterJoinTokenCmd)
	addManagerFlag(clusterInfoCmd)
}

var cliInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the CLI's certificate for mTLS communication with a manager",
	Long: `Request a certificate from the manager to enable mTLS authentication.
This command must be run once before using the read/write commands below.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		managerAddr, _ := cmd.Flags().GetString("manager")
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			return fmt.Errorf("--token is required (get one from 'cellar cluster join-token cli --manager <addr>')")
		}

		fmt.Println("Initializing CLI certificate...")
		fmt.Printf("  Manager: %s\n", managerAddr)

		c, err := client.NewClientWithToken(managerAddr, token)
		if err != nil {
			return fmt.Errorf("failed to initialize CLI: %w", err)
		}
		defer c.Close()

		fmt.Println("\n✓ CLI initialized successfully")
		fmt.Println("You can now use the other cellar CLI commands")
		return nil
	},
}

func init() {
	addManagerFlag(cliInitCmd)
	cliInitCmd.Flags().String("token", "", "Join token from the manager (required)")
}

// ---------------------------------------------------------------------
// Cypress tree commands
// ---------------------------------------------------------------------

var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Read a Cypress node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		node, err := c.Get(args[0], txnID)
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

var getAttrCmd = &cobra.Command{
	Use:   "get-attr PATH ATTRIBUTE",
	Short: "Read a Cypress node attribute (type, id, path, or a user attribute)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		value, err := c.GetAttribute(args[0], args[1], txnID)
		if err != nil {
			return err
		}
		fmt.Println(string(value))
		return nil
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists PATH",
	Short: "Check whether a Cypress node exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		exists, err := c.Exists(args[0], txnID)
		if err != nil {
			return err
		}
		fmt.Println(exists)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list PATH",
	Short: "List the children of a map or list node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		names, err := c.List(args[0], txnID)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create PARENT_PATH NAME",
	Short: "Create a Cypress node under PARENT_PATH",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}
		force, _ := cmd.Flags().GetBool("force")
		kindFlag, _ := cmd.Flags().GetString("type")

		node, err := c.Create(args[0], args[1], types.NodeKind(kindFlag), txnID, force)
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set PATH VALUE",
	Short: "Set the scalar payload of a Cypress node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		return c.Set(args[0], []byte(args[1]), txnID)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Remove a Cypress node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		return c.Remove(args[0], txnID)
	},
}

var setAttrCmd = &cobra.Command{
	Use:   "set-attr PATH ATTRIBUTE VALUE",
	Short: "Set a Cypress node attribute (an inheritable system attribute or a user attribute)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		return c.SetAttribute(args[0], args[1], []byte(args[2]), txnID)
	},
}

var removeAttrCmd = &cobra.Command{
	Use:   "remove-attr PATH ATTRIBUTE",
	Short: "Remove a Cypress node attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		return c.RemoveAttribute(args[0], args[1], txnID)
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy SRC_PATH DST_PARENT_PATH NAME",
	Short: "Copy a Cypress subtree",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}
		force, _ := cmd.Flags().GetBool("force")

		node, err := c.Copy(args[0], args[1], args[2], txnID, force)
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move SRC_PATH DST_PARENT_PATH NAME",
	Short: "Move a Cypress subtree",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}
		force, _ := cmd.Flags().GetBool("force")

		node, err := c.Move(args[0], args[1], args[2], txnID, force)
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link PARENT_PATH NAME TARGET_PATH",
	Short: "Create a symbolic link node",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		node, err := c.Link(args[0], args[1], args[2], txnID)
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock PATH",
	Short: "Acquire a lock on a Cypress node under a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}
		if txnID.IsZero() {
			return fmt.Errorf("--txn is required to take a lock")
		}

		mode, _ := cmd.Flags().GetString("mode")
		waitable, _ := cmd.Flags().GetBool("waitable")

		_, lockID, err := c.Lock(args[0], txnID, types.LockMode(mode), types.LockKey{}, waitable)
		if err != nil {
			return err
		}
		fmt.Printf("lock acquired: %s\n", lockID)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock LOCK_ID",
	Short: "Release a previously acquired lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		txnID, err := parseTxnID(cmd)
		if err != nil {
			return fmt.Errorf("invalid --txn: %w", err)
		}

		return c.Unlock(args[0], txnID)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{getCmd, getAttrCmd, existsCmd, listCmd, createCmd, setCmd, removeCmd, setAttrCmd, removeAttrCmd, copyCmd, moveCmd, linkCmd, lockCmd, unlockCmd} {
		addManagerFlag(cmd)
		addTxnFlag(cmd)
	}
	createCmd.Flags().String("type", string(types.NodeKindMap), "Node kind (map, list, string, int64, uint64, double, boolean, document, link, table, journal, secret)")
	createCmd.Flags().Bool("force", false, "Create parent directories/overwrite if needed")
	copyCmd.Flags().Bool("force", false, "Overwrite the destination if it exists")
	moveCmd.Flags().Bool("force", false, "Overwrite the destination if it exists")
	lockCmd.Flags().String("mode", string(types.LockModeExclusive), "Lock mode (snapshot, shared, exclusive)")
	lockCmd.Flags().Bool("waitable", false, "Queue for the lock instead of failing immediately if it is held")
}

func printNode(node *types.Node) {
	fmt.Printf("ID:       %s\n", node.ID)
	fmt.Printf("Kind:     %s\n", node.Kind)
	fmt.Printf("Revision: %d\n", node.Revision)
	if node.Kind.IsContainer() {
		switch node.Kind {
		case types.NodeKindList:
			fmt.Printf("Items:    %d\n", len(node.Items))
		default:
			names := make([]string, 0, len(node.Children))
			for name := range node.Children {
				names = append(names, name)
			}
			fmt.Printf("Children: %s\n", strings.Join(names, ", "))
		}
	} else if node.Kind == types.NodeKindLink {
		fmt.Printf("Target:   %s\n", node.LinkTarget)
	} else if node.Value != nil {
		fmt.Printf("Value:    %s\n", string(node.Value))
	}
}

// ---------------------------------------------------------------------
// Transaction commands
// ---------------------------------------------------------------------

var txnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Manage transactions",
}

var txnStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		parentRaw, _ := cmd.Flags().GetString("parent")
		var parentID ids.ID
		if parentRaw != "" {
			parentID, err = ids.Parse(parentRaw)
			if err != nil {
				return fmt.Errorf("invalid --parent: %w", err)
			}
		}

		title, _ := cmd.Flags().GetString("title")
		user, _ := cmd.Flags().GetString("user")
		timeoutSeconds, _ := cmd.Flags().GetInt64("timeout")

		txn, err := c.StartTransaction(parentID, title, user, timeoutSeconds, nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("transaction started: %s\n", txn.ID)
		return nil
	},
}

var txnPingCmd = &cobra.Command{
	Use:   "ping TXN_ID",
	Short: "Renew a transaction's lease",
	Args:  cobra.ExactArgs(1),
	RunE:  txnIDCommand((*client.Client).PingTransaction),
}

var txnPrepareCommitCmd = &cobra.Command{
	Use:   "prepare-commit TXN_ID",
	Short: "Prepare a transaction for commit",
	Args:  cobra.ExactArgs(1),
	RunE:  txnIDCommand((*client.Client).PrepareCommitTransaction),
}

var txnAbortCmd = &cobra.Command{
	Use:   "abort TXN_ID",
	Short: "Abort a transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  txnIDCommand((*client.Client).AbortTransaction),
}

var txnCommitCmd = &cobra.Command{
	Use:   "commit TXN_ID",
	Short: "Commit a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		id, err := ids.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid transaction ID: %w", err)
		}
		commitTimestamp, _ := cmd.Flags().GetUint64("commit-timestamp")
		return c.CommitTransaction(id, commitTimestamp)
	},
}

// txnIDCommand adapts a *client.Client method taking a single ids.ID into a
// cobra RunE, sharing the parse-then-call shape of ping/prepare-commit/abort.
func txnIDCommand(fn func(*client.Client, ids.ID) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		id, err := ids.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid transaction ID: %w", err)
		}
		return fn(c, id)
	}
}

func init() {
	txnCmd.AddCommand(txnStartCmd, txnPingCmd, txnPrepareCommitCmd, txnCommitCmd, txnAbortCmd)

	for _, cmd := range []*cobra.Command{txnStartCmd, txnPingCmd, txnPrepareCommitCmd, txnCommitCmd, txnAbortCmd} {
		addManagerFlag(cmd)
	}
	txnStartCmd.Flags().String("parent", "", "Parent transaction ID, for a nested transaction")
	txnStartCmd.Flags().String("title", "", "Human-readable transaction title")
	txnStartCmd.Flags().String("user", "", "Authenticated user name")
	txnStartCmd.Flags().Int64("timeout", 15, "Lease timeout in seconds")
	txnCommitCmd.Flags().Uint64("commit-timestamp", 0, "Commit timestamp (0 lets the manager assign one)")
}

// ---------------------------------------------------------------------
// Operation commands
// ---------------------------------------------------------------------

var operationCmd = &cobra.Command{
	Use:   "operation",
	Short: "Manage scheduler operations",
}

var operationSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new operation to the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		opType, _ := cmd.Flags().GetString("type")
		user, _ := cmd.Flags().GetString("user")
		idRaw, _ := cmd.Flags().GetString("id")

		var opID ids.ID
		if idRaw != "" {
			opID, err = ids.Parse(idRaw)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}
		} else {
			opID = ids.MustNew(0, ids.KindNode)
		}

		op := &types.Operation{
			ID:                opID,
			Type:              opType,
			AuthenticatedUser: user,
		}

		submitted, err := c.SubmitOperation(op)
		if err != nil {
			return err
		}
		fmt.Printf("operation submitted: %s (state: %s)\n", submitted.ID, submitted.State)
		return nil
	},
}

var operationAbortCmd = &cobra.Command{
	Use:   "abort OPERATION_ID",
	Short: "Abort a running operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		id, err := ids.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid operation ID: %w", err)
		}
		return c.AbortOperation(id)
	},
}

var operationGetCmd = &cobra.Command{
	Use:   "get OPERATION_ID",
	Short: "Show a single operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		id, err := ids.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid operation ID: %w", err)
		}
		op, err := c.GetOperation(id)
		if err != nil {
			return err
		}
		printOperation(op)
		return nil
	},
}

var operationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every operation known to this cell",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		ops, err := c.ListOperations()
		if err != nil {
			return err
		}
		for _, op := range ops {
			fmt.Printf("%s\t%s\t%s\n", op.ID, op.Type, op.State)
		}
		return nil
	},
}

func printOperation(op *types.Operation) {
	fmt.Printf("ID:       %s\n", op.ID)
	fmt.Printf("Type:     %s\n", op.Type)
	fmt.Printf("State:    %s\n", op.State)
	fmt.Printf("User:     %s\n", op.AuthenticatedUser)
	fmt.Printf("Finished: %t\n", op.State.IsFinished())
}

func init() {
	operationCmd.AddCommand(operationSubmitCmd, operationAbortCmd, operationGetCmd, operationListCmd)

	for _, cmd := range []*cobra.Command{operationSubmitCmd, operationAbortCmd, operationGetCmd, operationListCmd} {
		addManagerFlag(cmd)
	}
	operationSubmitCmd.Flags().String("type", "", "Operation type (required)")
	operationSubmitCmd.Flags().String("user", "", "Authenticated user name")
	operationSubmitCmd.Flags().String("id", "", "Operation ID (generated if omitted)")
	_ = operationSubmitCmd.MarkFlagRequired("type")
}

