package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/happyplace/dashboard/cache"
	conf "github.com/happyplace/dashboard/config"
	h "github.com/happyplace/dashboard/helpers"
	"github.com/happyplace/dashboard/models"
	"github.com/happyplace/dashboard/server"
)

var (
	configPath = flag.String("config", conf.DefaultConfigFilePath, "path to the config file")
	memprof    = flag.String("memprof", "", "write memory profile to file")
	memoryOnly = flag.Bool("memory-cache", false, "cache in process instead of memcached")
)

func main() {
	// Parse flags and start memory profiling
	// Usage: -memprof=happyplace.mprof
	// Also used to init glog
	flag.Parse()

	// 100 megabytes max before rolling the log files
	glog.MaxSize = 1024 * 1024 * 100

	if *memprof != "" {
		fname := *memprof + "-" + time.Now().Format("2006-01-02_15-04-05-MST")
		f, err := os.Create(fname)
		if err != nil {
			glog.Fatal(err)
		}

		// Catch SIGINT and write heap profile
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT)
		go func() {
			for sig := range c {
				glog.Warningf("Caught %v, stopping profiler and exiting..", sig)
				// Heap profiler is run on GC, so make sure it GCs before exiting.
				runtime.GC()
				pprof.WriteHeapProfile(f)
				f.Close()
				glog.Flush()
				os.Exit(1)
			}
		}()
	} else {
		// Catch closing signal and flush logs
		sigc := make(chan os.Signal, 1)
		signal.Notify(
			sigc,
			syscall.SIGHUP,
			syscall.SIGINT,
			syscall.SIGTERM,
			syscall.SIGQUIT,
		)
		go func() {
			<-sigc
			glog.Flush()
			os.Exit(1)
		}()
	}

	conf.Load(*configPath)

	// Every action the front end calls must have a handler before we serve
	if missing := models.CheckAjaxRegistry(); len(missing) > 0 {
		glog.Fatalf("AJAX actions without handlers: %s", strings.Join(missing, ", "))
	}

	if glog.V(2) {
		glog.Infof(
			"Initialising DB connection on %s:%d for database %s",
			conf.ConfigStrings[conf.DatabaseHost],
			conf.ConfigInt64s[conf.DatabasePort],
			conf.ConfigStrings[conf.DatabaseName],
		)
	}
	h.InitDBConnection(h.DBConfig{
		Host:     conf.ConfigStrings[conf.DatabaseHost],
		Port:     conf.ConfigInt64s[conf.DatabasePort],
		Database: conf.ConfigStrings[conf.DatabaseName],
		Username: conf.ConfigStrings[conf.DatabaseUsername],
		Password: conf.ConfigStrings[conf.DatabasePassword],
	})

	if *memoryOnly {
		cache.InitMemoryCache()
	} else {
		if glog.V(2) {
			glog.Infof(
				"Initialising cache connection to %s:%d",
				conf.ConfigStrings[conf.MemcachedHost],
				conf.ConfigInt64s[conf.MemcachedPort],
			)
		}
		cache.InitCache(
			conf.ConfigStrings[conf.MemcachedHost],
			conf.ConfigInt64s[conf.MemcachedPort],
		)
	}

	err := models.InitStorage(
		conf.ConfigStrings[conf.StorageEndpoint],
		conf.ConfigStrings[conf.StorageAccessKey],
		conf.ConfigStrings[conf.StorageSecretKey],
		conf.ConfigStrings[conf.StorageBucket],
		conf.ConfigBool[conf.StorageUseSSL],
	)
	if err != nil {
		// Photos and flyers fail until storage is reachable, the rest of the
		// dashboard still works
		glog.Errorf("InitStorage() %+v", err)
	}

	if glog.V(2) {
		glog.Infof(
			"Starting server on port %d",
			conf.ConfigInt64s[conf.ListenPort],
		)
	}
	server.StartServer(conf.ConfigInt64s[conf.ListenPort])
}
