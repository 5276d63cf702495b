package classloader

import (
	"fmt"

	"github.com/embervm/embervm/internal/runtime"
)

// EnsureInit implements ensure_init (§4.3): the class initialization state
// machine, synchronized on the class's own monitor rather than its
// java/lang/Class mirror (which may not exist yet this early in
// bootstrap — see DESIGN.md).
//
//	Uninitialised -> Initialising(thread) -> Initialised | InitError
//
// A recursive call from the thread already running <clinit> (a class that
// references itself, directly or through its superclass chain, during its
// own static initializer) returns immediately rather than deadlocking.
func EnsureInit(r *Registry, class *runtime.Class, currentThread uint64) error {
	if class.Kind == runtime.ClassPrimitive || class.Kind == runtime.ClassArray {
		return nil
	}

	mon := class.InitMonitor()
	mon.Enter(currentThread)

	for {
		shouldRun, state := class.TryBeginInit(currentThread)
		if shouldRun {
			break
		}
		switch state {
		case runtime.Initialised:
			mon.Exit(currentThread)
			return nil
		case runtime.InitError:
			mon.Exit(currentThread)
			return fmt.Errorf("classloader: %s failed to initialise (NoClassDefFoundError)", class.Name)
		default: // Initialising
			if class.InitialisingThread() == currentThread {
				mon.Exit(currentThread)
				return nil
			}
			mon.Wait(currentThread)
		}
	}
	mon.Exit(currentThread)

	ok := true
	if class.SuperClass != nil {
		if err := EnsureInit(r, class.SuperClass, currentThread); err != nil {
			ok = false
		}
	}
	// Interfaces are not initialised here: only those declaring default
	// methods require eager init under JLS 12.4.2, which the interpreter
	// (not the loader) is positioned to detect when it first dispatches to
	// one; classes always trigger superclass init first regardless.

	var initErr error
	if ok {
		if clinit := class.FindMethodDeclared("<clinit>", "()V"); clinit != nil {
			if r.invoker == nil {
				ok = false
				initErr = fmt.Errorf("classloader: no invoker set, cannot run <clinit> of %s", class.Name)
			} else if err := r.invoker.RunClinit(clinit); err != nil {
				ok = false
				initErr = fmt.Errorf("classloader: %s's <clinit> raised an exception (ExceptionInInitializerError): %w", class.Name, err)
			}
		}
	}

	class.FinishInit(ok)

	mon.Enter(currentThread)
	mon.NotifyAll()
	mon.Exit(currentThread)

	if !ok {
		if initErr != nil {
			return initErr
		}
		return fmt.Errorf("classloader: %s failed to initialise", class.Name)
	}
	return nil
}
