package natives

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/interpreter"
	"github.com/embervm/embervm/internal/runtime"
	"github.com/embervm/embervm/internal/thread"
)

// implementations returns the id -> Go function table. eng is threaded
// through so natives that need to call back into Java (Comparator.compare,
// Object.toString on an arbitrary class, boxing a fresh String/Integer)
// can do so via eng.Invoke/eng.NewJavaString, the same path the
// interpreter itself uses.
func implementations(eng *interpreter.Engine) map[string]runtime.NativeFunc {
	return map[string]runtime.NativeFunc{
		"object.hashCode": func(args []runtime.Value) (*runtime.Value, error) {
			v := runtime.IntValue(args[0].Ref.IdentityHashCode())
			return &v, nil
		},
		"object.equals": func(args []runtime.Value) (*runtime.Value, error) {
			v := runtime.BoolValue(args[0].Ref == args[1].Ref)
			return &v, nil
		},
		"object.getClass": func(args []runtime.Value) (*runtime.Value, error) {
			mirror := eng.ClassMirror(args[0].Ref.Class)
			v := runtime.RefValue(mirror)
			return &v, nil
		},
		"object.toString": func(args []runtime.Value) (*runtime.Value, error) {
			obj := args[0].Ref
			s := fmt.Sprintf("%s@%x", obj.Class.Name, uint32(obj.IdentityHashCode()))
			boxed, err := eng.NewJavaString(s)
			if err != nil {
				return nil, err
			}
			v := runtime.RefValue(boxed)
			return &v, nil
		},

		"system.arraycopy": func(args []runtime.Value) (*runtime.Value, error) {
			src, srcPos, dst, dstPos, length := args[0], args[1].Int32(), args[2], args[3].Int32(), args[4].Int32()
			if src.IsNull() || dst.IsNull() {
				return nil, eng.NewThrown("java/lang/NullPointerException")
			}
			if !runtime.ArrayCopy(src.Ref, int(srcPos), dst.Ref, int(dstPos), int(length)) {
				return nil, eng.NewThrown("java/lang/ArrayIndexOutOfBoundsException")
			}
			return nil, nil
		},
		"system.currentTimeMillis": func(args []runtime.Value) (*runtime.Value, error) {
			v := runtime.LongValue(time.Now().UnixMilli())
			return &v, nil
		},
		"system.identityHashCode": func(args []runtime.Value) (*runtime.Value, error) {
			if args[0].IsNull() {
				v := runtime.IntValue(0)
				return &v, nil
			}
			v := runtime.IntValue(args[0].Ref.IdentityHashCode())
			return &v, nil
		},

		"printstream.println.void": func(args []runtime.Value) (*runtime.Value, error) {
			printlnTo(args[0].Ref, "")
			return nil, nil
		},
		"printstream.println.string": func(args []runtime.Value) (*runtime.Value, error) {
			if args[1].IsNull() {
				printlnTo(args[0].Ref, "null")
				return nil, nil
			}
			s, _ := interpreter.JavaString(args[1].Ref)
			printlnTo(args[0].Ref, s)
			return nil, nil
		},
		"printstream.println.int": func(args []runtime.Value) (*runtime.Value, error) {
			printlnTo(args[0].Ref, strconv.FormatInt(int64(args[1].Int32()), 10))
			return nil, nil
		},
		"printstream.println.long": func(args []runtime.Value) (*runtime.Value, error) {
			printlnTo(args[0].Ref, strconv.FormatInt(args[1].Int64(), 10))
			return nil, nil
		},
		"printstream.println.object": func(args []runtime.Value) (*runtime.Value, error) {
			s, err := toStringViaEngine(eng, args[1])
			if err != nil {
				return nil, err
			}
			printlnTo(args[0].Ref, s)
			return nil, nil
		},
		"printstream.print.string": func(args []runtime.Value) (*runtime.Value, error) {
			if !args[1].IsNull() {
				s, _ := interpreter.JavaString(args[1].Ref)
				printTo(args[0].Ref, s)
			}
			return nil, nil
		},

		"string.length": func(args []runtime.Value) (*runtime.Value, error) {
			s, _ := interpreter.JavaString(args[0].Ref)
			v := runtime.IntValue(int32(len([]rune(s))))
			return &v, nil
		},
		"string.charAt": func(args []runtime.Value) (*runtime.Value, error) {
			s, _ := interpreter.JavaString(args[0].Ref)
			runes := []rune(s)
			idx := args[1].Int32()
			if idx < 0 || int(idx) >= len(runes) {
				return nil, eng.NewThrown("java/lang/StringIndexOutOfBoundsException")
			}
			v := runtime.CharValue(uint16(runes[idx]))
			return &v, nil
		},
		"string.equals": func(args []runtime.Value) (*runtime.Value, error) {
			a, _ := interpreter.JavaString(args[0].Ref)
			if args[1].IsNull() {
				v := runtime.BoolValue(false)
				return &v, nil
			}
			b, ok := interpreter.JavaString(args[1].Ref)
			v := runtime.BoolValue(ok && a == b)
			return &v, nil
		},
		"string.concat": func(args []runtime.Value) (*runtime.Value, error) {
			a, _ := interpreter.JavaString(args[0].Ref)
			b, _ := interpreter.JavaString(args[1].Ref)
			boxed, err := eng.NewJavaString(a + b)
			if err != nil {
				return nil, err
			}
			v := runtime.RefValue(boxed)
			return &v, nil
		},
		"string.hashCode": func(args []runtime.Value) (*runtime.Value, error) {
			s, _ := interpreter.JavaString(args[0].Ref)
			var h int32
			for _, r := range s {
				h = 31*h + int32(r)
			}
			v := runtime.IntValue(h)
			return &v, nil
		},
		"string.toString": func(args []runtime.Value) (*runtime.Value, error) {
			return &args[0], nil
		},
		"string.valueOfInt": func(args []runtime.Value) (*runtime.Value, error) {
			boxed, err := eng.NewJavaString(strconv.FormatInt(int64(args[0].Int32()), 10))
			if err != nil {
				return nil, err
			}
			v := runtime.RefValue(boxed)
			return &v, nil
		},

		"integer.valueOf": func(args []runtime.Value) (*runtime.Value, error) {
			obj, err := boxInteger(eng, args[0].Int32())
			if err != nil {
				return nil, err
			}
			v := runtime.RefValue(obj)
			return &v, nil
		},
		"integer.parseInt": func(args []runtime.Value) (*runtime.Value, error) {
			s, _ := interpreter.JavaString(args[0].Ref)
			n, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, eng.NewThrown("java/lang/NumberFormatException")
			}
			v := runtime.IntValue(int32(n))
			return &v, nil
		},
		"integer.intValue": func(args []runtime.Value) (*runtime.Value, error) {
			val, ok := getField(args[0].Ref, "value", "I")
			if !ok {
				return nil, fmt.Errorf("natives: Integer instance has no value field")
			}
			return &val, nil
		},
		"integer.toStringStatic": func(args []runtime.Value) (*runtime.Value, error) {
			boxed, err := eng.NewJavaString(strconv.FormatInt(int64(args[0].Int32()), 10))
			if err != nil {
				return nil, err
			}
			v := runtime.RefValue(boxed)
			return &v, nil
		},

		"collections.sort": func(args []runtime.Value) (*runtime.Value, error) {
			return nil, sortList(eng, args[0].Ref, args[1].Ref)
		},
	}
}

func printlnTo(stream *runtime.Object, s string) {
	w := stream.NativeWriter
	if w == nil {
		return
	}
	fmt.Fprintln(w, s)
}

func printTo(stream *runtime.Object, s string) {
	w := stream.NativeWriter
	if w == nil {
		return
	}
	fmt.Fprint(w, s)
}

func toStringViaEngine(eng *interpreter.Engine, v runtime.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	if s, ok := interpreter.JavaString(v.Ref); ok {
		return s, nil
	}
	method, ok := classloader.FindMethodInHierarchy(v.Ref.Class, "toString", "()Ljava/lang/String;")
	if !ok {
		return fmt.Sprintf("%s@%x", v.Ref.Class.Name, uint32(v.Ref.IdentityHashCode())), nil
	}
	ret, err := eng.Invoke(v.Ref.Class, method, []runtime.Value{v})
	if err != nil {
		return "", err
	}
	if ret == nil || ret.IsNull() {
		return "null", nil
	}
	s, _ := interpreter.JavaString(ret.Ref)
	return s, nil
}

// boxInteger allocates a java/lang/Integer with its "value" field set,
// the way autoboxing and Integer.valueOf do in a real JDK.
func boxInteger(eng *interpreter.Engine, n int32) (*runtime.Object, error) {
	class, err := eng.Reg.LoadClass("java/lang/Integer", classloader.BootstrapLoader, thread.CurrentID())
	if err != nil {
		return nil, err
	}
	if err := classloader.EnsureInit(eng.Reg, class, thread.CurrentID()); err != nil {
		return nil, err
	}
	obj := runtime.NewInstance(class)
	setField(obj, "value", "I", runtime.IntValue(n))
	return obj, nil
}

// sortList implements Collections.sort against the real OpenJDK
// ArrayList's backing fields ("elementData" an Object[], "size" an int),
// calling back into the user's Comparator.compare for every ordering
// decision — like println(Object)'s toString call, it re-enters the
// interpreter rather than just computing a value.
func sortList(eng *interpreter.Engine, list, comparator *runtime.Object) error {
	if list == nil {
		return eng.NewThrown("java/lang/NullPointerException")
	}
	backingV, ok := getField(list, "elementData", "[Ljava/lang/Object;")
	if !ok || backingV.IsNull() {
		return fmt.Errorf("natives: list has no elementData backing array")
	}
	sizeV, ok := getField(list, "size", "I")
	if !ok {
		return fmt.Errorf("natives: list has no size field")
	}
	backing := backingV.Ref
	n := int(sizeV.Int32())

	elems := make([]runtime.Value, n)
	for i := 0; i < n; i++ {
		elems[i], _ = backing.ArrayGet(i)
	}

	compareMethod, found := classloader.FindMethodInHierarchy(comparator.Class, "compare", "(Ljava/lang/Object;Ljava/lang/Object;)I")
	if !found {
		compareMethod, found = classloader.ResolveVirtualMethod(comparator.Class, "compare", "(Ljava/lang/Object;Ljava/lang/Object;)I")
	}
	if !found {
		return fmt.Errorf("natives: comparator has no compare(Object,Object)I method")
	}

	var sortErr error
	sort.SliceStable(elems, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		ret, err := eng.Invoke(comparator.Class, compareMethod, []runtime.Value{runtime.RefValue(comparator), elems[i], elems[j]})
		if err != nil {
			sortErr = err
			return false
		}
		return ret.Int32() < 0
	})
	if sortErr != nil {
		return sortErr
	}

	for i := 0; i < n; i++ {
		backing.ArraySet(i, elems[i])
	}
	return nil
}
