// Package vm is the bootstrap orchestrator: it owns the registry, the
// interpreter engine, and the native table, wires them into one another
// (breaking the classloader<->interpreter import cycle by implementing
// classloader.JavaInvoker itself), and drives the whole startup sequence
// from a config.Config down to a running main(String[]).
package vm

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/config"
	"github.com/embervm/embervm/internal/interpreter"
	"github.com/embervm/embervm/internal/natives"
	"github.com/embervm/embervm/internal/runtime"
	"github.com/embervm/embervm/internal/thread"
)

// preloadClasses are the always-needed boot classes fanned out in
// parallel at startup (spec.md §5 / SPEC_FULL.md §5): the eight boxed
// wrapper types, java/lang/Object, java/lang/Class, and java/lang/String
// are on the hot path of nearly every program, so they're loaded
// concurrently with golang.org/x/sync/errgroup rather than one at a time.
var preloadClasses = []string{
	"java/lang/Object",
	"java/lang/Class",
	"java/lang/String",
	"java/lang/Boolean",
	"java/lang/Byte",
	"java/lang/Character",
	"java/lang/Short",
	"java/lang/Integer",
	"java/lang/Long",
	"java/lang/Float",
	"java/lang/Double",
	"java/lang/Throwable",
	"java/lang/System",
	"java/io/PrintStream",
}

// VM is the fully wired runtime: registry, interpreter, natives, logger.
// It implements classloader.JavaInvoker, closing the dependency-inversion
// seam classloader.Registry depends on.
type VM struct {
	Reg     *classloader.Registry
	Engine  *interpreter.Engine
	Natives *natives.Table
	Log     *zap.Logger

	cfg *config.Config
}

var _ classloader.JavaInvoker = (*VM)(nil)

// Bootstrap constructs a VM from cfg: resolves the boot class path, builds
// the registry/engine/natives triangle, wires the JavaInvoker seam,
// parallel-preloads the always-needed classes, and patches System.out/err
// to write to the host's stdio.
func Bootstrap(cfg *config.Config) (*VM, error) {
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("vm: building logger: %w", err)
	}

	bootSources, err := cfg.BootSources()
	if err != nil {
		return nil, fmt.Errorf("vm: resolving boot class path: %w", err)
	}

	reg := classloader.NewRegistry(bootSources)
	engine := interpreter.NewEngine(reg)
	v := &VM{Reg: reg, Engine: engine, Log: log, cfg: cfg}
	reg.SetInvoker(v)

	table, err := natives.NewTable(engine)
	if err != nil {
		return nil, fmt.Errorf("vm: building native table: %w", err)
	}
	v.Natives = table
	engine.SetNatives(table)

	if err := v.preload(); err != nil {
		return nil, fmt.Errorf("vm: preloading boot classes: %w", err)
	}
	if err := v.wireStdio(); err != nil {
		return nil, fmt.Errorf("vm: wiring System.out/err: %w", err)
	}
	return v, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// preload loads the hot-path boot classes concurrently. A failure in any
// one fails the whole group (errgroup's first-error-wins semantics); boot
// classes are expected to always resolve, so any failure here is a VM
// initialization error, not a recoverable one.
func (v *VM) preload() error {
	g := new(errgroup.Group)
	for _, name := range preloadClasses {
		name := name
		g.Go(func() error {
			if err := thread.WithThread(func() error {
				class, err := v.Reg.LoadClass(name, classloader.BootstrapLoader, thread.CurrentID())
				if err != nil {
					return err
				}
				return classloader.EnsureInit(v.Reg, class, thread.CurrentID())
			}); err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	v.Log.Debug("preloaded boot classes", zap.Int("count", len(preloadClasses)))
	return nil
}

// wireStdio patches System.out and System.err to real PrintStream
// instances backed by os.Stdout/os.Stderr, the same NativeWriter
// side-table every println/print native reads from. A real JDK's
// System.<clinit> wires these through FileOutputStream/FileDescriptor;
// this implementation short-circuits straight to the Go writer (see
// DESIGN.md).
func (v *VM) wireStdio() error {
	return thread.WithThread(func() error {
		sysClass, err := v.Reg.LoadClass("java/lang/System", classloader.BootstrapLoader, thread.CurrentID())
		if err != nil {
			return err
		}
		psClass, err := v.Reg.LoadClass("java/io/PrintStream", classloader.BootstrapLoader, thread.CurrentID())
		if err != nil {
			return err
		}
		out := runtime.NewInstance(psClass)
		out.NativeWriter = os.Stdout
		errStream := runtime.NewInstance(psClass)
		errStream.NativeWriter = os.Stderr

		if !setStaticField(sysClass, "out", "Ljava/io/PrintStream;", runtime.RefValue(out)) {
			return fmt.Errorf("java/lang/System has no out field")
		}
		if !setStaticField(sysClass, "err", "Ljava/io/PrintStream;", runtime.RefValue(errStream)) {
			return fmt.Errorf("java/lang/System has no err field")
		}
		return nil
	})
}

func setStaticField(class *runtime.Class, name, descriptor string, v runtime.Value) bool {
	field, declarer, ok := classloader.FindFieldRecursive(class, name, descriptor)
	if !ok {
		return false
	}
	id, ok := declarer.StaticLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok {
		return false
	}
	declarer.StaticValues.Set(id, v)
	return true
}

// InvokeLoadClass implements classloader.JavaInvoker: it calls the user
// loader's loadClass(String) and recovers the *runtime.Class from the
// returned java/lang/Class mirror's MirrorOf back-pointer.
func (v *VM) InvokeLoadClass(loaderObj *runtime.Object, name string) (*runtime.Class, error) {
	dotName := strings.ReplaceAll(name, "/", ".")
	method, ok := classloader.FindMethodInHierarchy(loaderObj.Class, "loadClass", "(Ljava/lang/String;)Ljava/lang/Class;")
	if !ok {
		return nil, fmt.Errorf("vm: %s has no loadClass(String)Class method", loaderObj.Class.Name)
	}
	arg, err := v.Engine.NewJavaString(dotName)
	if err != nil {
		return nil, err
	}
	ret, err := v.Engine.Invoke(loaderObj.Class, method, []runtime.Value{runtime.RefValue(loaderObj), runtime.RefValue(arg)})
	if err != nil {
		return nil, err
	}
	if ret == nil || ret.IsNull() {
		return nil, fmt.Errorf("vm: %s.loadClass(%q) returned null", loaderObj.Class.Name, dotName)
	}
	if ret.Ref.MirrorOf == nil {
		return nil, fmt.Errorf("vm: %s.loadClass(%q) did not return a Class mirror", loaderObj.Class.Name, dotName)
	}
	return ret.Ref.MirrorOf, nil
}

// RunClinit implements classloader.JavaInvoker: it runs a class's
// <clinit> through the same interpreter path as any other call.
func (v *VM) RunClinit(method *runtime.Method) error {
	_, err := v.Engine.Invoke(method.Class, method, nil)
	return err
}

// Exit codes per SPEC_FULL.md §6: three distinguishable outcomes rather
// than a single generic non-zero, so a caller scripting embervm can tell
// an uncaught Java exception apart from a VM startup failure.
const (
	ExitSuccess     = 0
	ExitUncaught    = 1
	ExitInitFailure = 2
)

// Run loads the main class, locates its public static void main(String[]),
// and invokes it with args boxed into a java/lang/String[]. It registers
// the calling goroutine as a JVM thread for the duration of the call.
func (v *VM) Run(mainClass string, args []string) int {
	var exitCode int
	err := thread.WithThread(func() error {
		binaryName := strings.ReplaceAll(mainClass, ".", "/")

		// A system class loader is not modelled as a distinct
		// runtime.LoaderID kind here (see DESIGN.md): the bootstrap loader
		// doubles as "the system loader" and searches the user class path
		// too, unless -XXnosystemclassloader asks for the main class to be
		// resolved from the boot class path alone.
		loader := classloader.BootstrapLoader
		userSources := v.cfg.UserSources()
		if v.cfg.NoSystemClassLoader {
			userSources = nil
		}
		if len(userSources) > 0 {
			v.Reg.AddBootSources(userSources)
		}

		class, err := v.Reg.LoadClass(binaryName, loader, thread.CurrentID())
		if err != nil {
			exitCode = ExitInitFailure
			return fmt.Errorf("loading main class %s: %w", mainClass, err)
		}
		if err := classloader.EnsureInit(v.Reg, class, thread.CurrentID()); err != nil {
			exitCode = ExitInitFailure
			return err
		}

		method := class.FindMethodDeclared("main", "([Ljava/lang/String;)V")
		if method == nil || !method.IsStatic() {
			exitCode = ExitInitFailure
			return fmt.Errorf("%s has no public static void main(String[])", mainClass)
		}

		argsArray, err := v.buildArgsArray(args)
		if err != nil {
			exitCode = ExitInitFailure
			return err
		}

		_, err = v.Engine.Invoke(class, method, []runtime.Value{runtime.RefValue(argsArray)})
		if err != nil {
			var thrown *interpreter.ThrownException
			if errors.As(err, &thrown) {
				exitCode = ExitUncaught
				v.Log.Error("uncaught exception", zap.String("class", thrown.Object.Class.Name))
				return err
			}
			exitCode = ExitInitFailure
			return err
		}
		exitCode = ExitSuccess
		return nil
	})
	if err != nil {
		v.Log.Debug("run failed", zap.Error(err))
	}
	return exitCode
}

// buildArgsArray boxes args into a java/lang/String[], the shape
// main(String[]) expects.
func (v *VM) buildArgsArray(args []string) (*runtime.Object, error) {
	arrClass, err := v.Reg.LoadClass("[Ljava/lang/String;", classloader.BootstrapLoader, thread.CurrentID())
	if err != nil {
		return nil, err
	}
	arr := runtime.NewArray(arrClass, runtime.TReference, len(args))
	for i, a := range args {
		s, err := v.Engine.NewJavaString(a)
		if err != nil {
			return nil, err
		}
		arr.ArraySet(i, runtime.RefValue(s))
	}
	return arr, nil
}
