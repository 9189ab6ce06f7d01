// Command node starts a TOL Chain node.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tolelom/tolchain/bus"
	"github.com/tolelom/tolchain/config"
	"github.com/tolelom/tolchain/consensus"
	"github.com/tolelom/tolchain/core"
	"github.com/tolelom/tolchain/crypto"
	"github.com/tolelom/tolchain/engine"
	"github.com/tolelom/tolchain/events"
	"github.com/tolelom/tolchain/genesis"
	"github.com/tolelom/tolchain/rpc"
	"github.com/tolelom/tolchain/storage"
	syncpkg "github.com/tolelom/tolchain/sync"
	"github.com/tolelom/tolchain/vmgate"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "", "path to keystore file (overrides config)")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	flag.Parse()

	password := os.Getenv("TOL_PASSWORD")
	if password == "" {
		log.Println("WARNING: TOL_PASSWORD not set — keystore will use an empty password")
	}

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	profile, err := cfg.ResolveProfile()
	if err != nil {
		log.Fatalf("resolve profile: %v", err)
	}
	keyFile := cfg.ResolveKeyFile(profile)
	if *keyPath != "" {
		keyFile = *keyPath
	}

	if *genKey {
		priv, err := profile.GenerateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		if err := crypto.SaveKey(keyFile, profile, password, priv); err != nil {
			log.Fatalf("save key: %v", err)
		}
		fmt.Printf("validator key written to %s (pubkey hash %x)\n", keyFile, priv.Public().Hash())
		return
	}

	priv, loadedProfile, err := crypto.LoadKey(keyFile, password)
	if err != nil {
		log.Fatalf("load validator key %s: %v", keyFile, err)
	}
	if loadedProfile.Name() != profile.Name() {
		log.Fatalf("keystore %s is %s, config requests %s", keyFile, loadedProfile.Name(), profile.Name())
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	blockDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, profile.StoreDir("block")))
	if err != nil {
		log.Fatalf("open block store: %v", err)
	}
	txDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, profile.StoreDir("tx")))
	if err != nil {
		log.Fatalf("open tx store: %v", err)
	}
	accountDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, profile.StoreDir("accounts")))
	if err != nil {
		log.Fatalf("open account store: %v", err)
	}
	pubkeyDB, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, profile.StoreDir("pubkeys")))
	if err != nil {
		log.Fatalf("open pubkey store: %v", err)
	}
	defer blockDB.Close()
	defer txDB.Close()
	defer accountDB.Close()
	defer pubkeyDB.Close()

	blocks := storage.NewBlockStore(blockDB)
	txes := storage.NewTxStore(txDB)
	accounts := storage.NewAccountStore(accountDB)
	pubkeys := storage.NewPubKeyStore(pubkeyDB)

	genesisBlock, err := genesis.Bootstrap(cfg.ResolveGenesisFile(profile), priv, blocks, txes)
	if err != nil {
		log.Fatalf("bootstrap genesis: %v", err)
	}

	b, err := bus.Connect(cfg.BusURLs)
	if err != nil {
		log.Fatalf("connect bus: %v", err)
	}
	defer b.Close()

	settings, err := loadSettings(txes, genesisBlock)
	if err != nil {
		log.Printf("[node] could not read consensus settings from genesis, using defaults: %v", err)
		settings = consensus.DefaultSettings()
	}

	synchronizer := &syncpkg.Synchronizer{
		Bus:     b,
		Profile: profile,
		Blocks:  blocks,
		Txes:    txes,
		PubKeys: pubkeys,
		SPV:     cfg.SPV,
		Timeout: cfg.SyncTimeout,
	}
	tip, err := synchronizer.Run()
	if err != nil {
		log.Printf("[node] catch-up sync failed, continuing from last known head: %v", err)
	}
	head := genesisBlock
	if tip > genesisBlock.Height() {
		hash, err := blocks.GetHashAtHeight(tip)
		if err != nil {
			log.Fatalf("resolve synced head hash: %v", err)
		}
		head, err = blocks.GetBlock(hash)
		if err != nil {
			log.Fatalf("load synced head block: %v", err)
		}
	}

	vm := vmgate.New(cfg.ContractsDir)
	notifier := events.NewEmitter()
	logEvent := func(ev events.Event) {
		log.Printf("[event] %s height=%d hash=%s", ev.Type, ev.Height, ev.Hash)
	}
	for _, typ := range []events.EventType{
		events.EventHeadCommitted,
		events.EventTxAdmitted,
		events.EventBlockProposed,
		events.EventChatReceived,
		events.EventPubKeyLearned,
	} {
		notifier.Subscribe(typ, logEvent)
	}

	eng := engine.New(profile, priv, b, blocks, txes, accounts, pubkeys, settings, vm, notifier, head)
	if err := eng.Subscribe(); err != nil {
		log.Fatalf("subscribe to bus: %v", err)
	}

	handler := rpc.NewHandler(eng, profile, blocks, accounts, vm)
	server := rpc.NewServer(fmt.Sprintf("127.0.0.1:%d", cfg.RPCPort), handler, cfg.RPCAuthToken)
	if err := server.Start(); err != nil {
		log.Fatalf("start rpc server: %v", err)
	}
	log.Printf("[node] rpc listening on %s", server.Addr())

	stop := make(chan struct{})
	go readChatStdin(eng, stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[node] shutting down")
		close(stop)
	}()

	runErrs := make(chan error, 1)
	go func() { runErrs <- eng.Run(stop) }()

	if err := <-runErrs; err != nil {
		log.Printf("[node] engine stopped: %v", err)
	}

	if err := server.Stop(); err != nil {
		log.Printf("[node] rpc shutdown: %v", err)
	}
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return config.Load(path)
}

// loadSettings decodes the consensus settings carried in the genesis
// block's sole transaction, so every node that bootstrapped or synced
// from the same genesis agrees on the same limiter configuration.
func loadSettings(txes *storage.TxStore, genesisBlock *core.Block) (consensus.Settings, error) {
	if len(genesisBlock.Hashed.Data.Txes) == 0 {
		return consensus.Settings{}, fmt.Errorf("genesis block carries no transactions")
	}
	tx, err := txes.Get(genesisBlock.Hashed.Data.Txes[0])
	if err != nil {
		return consensus.Settings{}, err
	}
	var settings consensus.Settings
	if err := json.Unmarshal(tx.Body.Data, &settings); err != nil {
		return consensus.Settings{}, err
	}
	return settings, nil
}

// readChatStdin turns lines on stdin into Chat events, letting an operator
// publish an arbitrary-data transaction from the terminal without going
// through the RPC surface.
func readChatStdin(eng *engine.Engine, stop <-chan struct{}) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	for {
		select {
		case <-stop:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line != "" {
				eng.Enqueue(engine.Chat([]byte(line)))
			}
		}
	}
}
