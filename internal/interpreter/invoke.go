package interpreter

import (
	"fmt"

	"github.com/embervm/embervm/internal/classloader"
	"github.com/embervm/embervm/internal/frame"
	"github.com/embervm/embervm/internal/runtime"
	"github.com/embervm/embervm/internal/thread"
)

// resolveClass resolves a class name through this frame's defining
// loader, the same loader every reference in its constant pool is
// resolved against (JVMS 5.3's "initiating loader" rule).
func (e *Engine) resolveClass(f *frame.Frame, name string) (*runtime.Class, error) {
	return e.Reg.LoadClass(name, f.Class.Loader, thread.CurrentID())
}

// classMirror returns (creating if necessary) the java/lang/Class mirror
// for class; used by ldc of a class constant and by Object.getClass.
func (e *Engine) ClassMirror(class *runtime.Class) *runtime.Object {
	if m := class.ClassObject(); m != nil {
		return m
	}
	metaClass, err := e.Reg.LoadClass("java/lang/Class", classloader.BootstrapLoader, thread.CurrentID())
	if err != nil {
		// java/lang/Class itself must be on the boot class path; if it
		// isn't, there is no sane mirror to return, but nothing else can be
		// done in Go-level code here either. The caller observes a nil Ref.
		return nil
	}
	m := runtime.NewClassMirror(metaClass, class)
	class.SetClassObject(m)
	return m
}

func (e *Engine) resolveFieldRef(f *frame.Frame, index int) (*runtime.RCPEntry, error) {
	entry, found := f.Class.ConstantPool.Get(index)
	if !found || entry.Kind != runtime.RCPFieldRef {
		return nil, fmt.Errorf("interpreter: constant pool slot %d is not a field reference", index)
	}
	return &entry, nil
}

func (e *Engine) execGetstatic(f *frame.Frame, index int) stepResult {
	entry, err := e.resolveFieldRef(f, index)
	if err != nil {
		return fail(err)
	}
	owner, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	if err := classloader.EnsureInit(e.Reg, owner, thread.CurrentID()); err != nil {
		return e.throwFromErr(err)
	}
	field, declarer, ok2 := classloader.FindFieldRecursive(owner, entry.MemberName, entry.Descriptor)
	if !ok2 {
		return e.raise("java/lang/NoSuchFieldError")
	}
	id, ok2 := declarer.StaticLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: %s.%s not found in static layout", declarer.Name, field.Name))
	}
	return e.pushOrFail(f, declarer.StaticValues.Get(id))
}

func (e *Engine) execPutstatic(f *frame.Frame, index int) stepResult {
	entry, err := e.resolveFieldRef(f, index)
	if err != nil {
		return fail(err)
	}
	owner, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	if err := classloader.EnsureInit(e.Reg, owner, thread.CurrentID()); err != nil {
		return e.throwFromErr(err)
	}
	v, perr := f.Stack.Pop()
	if perr != nil {
		return fail(perr)
	}
	field, declarer, ok2 := classloader.FindFieldRecursive(owner, entry.MemberName, entry.Descriptor)
	if !ok2 {
		return e.raise("java/lang/NoSuchFieldError")
	}
	id, ok2 := declarer.StaticLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: %s.%s not found in static layout", declarer.Name, field.Name))
	}
	assigned, okAssign := v.AssignTo(field.Type)
	if !okAssign {
		assigned = v
	}
	declarer.StaticValues.Set(id, assigned)
	return ok()
}

func (e *Engine) execGetfield(f *frame.Frame, index int) stepResult {
	entry, err := e.resolveFieldRef(f, index)
	if err != nil {
		return fail(err)
	}
	refClass, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	recv, perr := f.Stack.Pop()
	if perr != nil {
		return fail(perr)
	}
	if recv.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	field, declarer, ok2 := classloader.FindFieldRecursive(refClass, entry.MemberName, entry.Descriptor)
	if !ok2 {
		return e.raise("java/lang/NoSuchFieldError")
	}
	id, ok2 := recv.Ref.Class.InstanceLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: %s.%s not found in instance layout of %s", declarer.Name, field.Name, recv.Ref.Class.Name))
	}
	return e.pushOrFail(f, recv.Ref.Fields.Get(id))
}

func (e *Engine) execPutfield(f *frame.Frame, index int) stepResult {
	entry, err := e.resolveFieldRef(f, index)
	if err != nil {
		return fail(err)
	}
	refClass, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	v, perr := f.Stack.Pop()
	if perr != nil {
		return fail(perr)
	}
	recv, perr := f.Stack.Pop()
	if perr != nil {
		return fail(perr)
	}
	if recv.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	field, declarer, ok2 := classloader.FindFieldRecursive(refClass, entry.MemberName, entry.Descriptor)
	if !ok2 {
		return e.raise("java/lang/NoSuchFieldError")
	}
	id, ok2 := recv.Ref.Class.InstanceLayout.Lookup(declarer.Name, field.Name, field.Descriptor)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: %s.%s not found in instance layout of %s", declarer.Name, field.Name, recv.Ref.Class.Name))
	}
	assigned, okAssign := v.AssignTo(field.Type)
	if !okAssign {
		assigned = v
	}
	recv.Ref.Fields.Set(id, assigned)
	return ok()
}

// popArgs pops a method's declared argument count plus, for instance
// calls, the receiver, returning them in forward (declaration) order with
// the receiver first.
func (e *Engine) popArgs(f *frame.Frame, method *runtime.Method, hasReceiver bool) ([]runtime.Value, stepResult) {
	n := len(method.ParamTypes)
	pop, err := f.Stack.PopN(n)
	if err != nil {
		return nil, fail(err)
	}
	// PopN yields the top (last-declared) argument first, so fill from the
	// end to get declaration order.
	declared := make([]runtime.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, ok2 := pop()
		if !ok2 {
			break
		}
		declared[i] = v
	}
	if !hasReceiver {
		return declared, stepResult{}
	}
	recv, err := f.Stack.Pop()
	if err != nil {
		return nil, fail(err)
	}
	if recv.IsNull() {
		return nil, e.raise("java/lang/NullPointerException")
	}
	args := make([]runtime.Value, 0, n+1)
	args = append(args, recv)
	args = append(args, declared...)
	return args, stepResult{}
}

// callResult runs a resolved method and folds the outcome into this
// frame's step result: a return value is pushed (unless the method
// returns void), a propagated ThrownException becomes this frame's thrown
// exception, and any other error is fatal.
func (e *Engine) callResult(f *frame.Frame, class *runtime.Class, method *runtime.Method, args []runtime.Value) stepResult {
	v, err := e.Invoke(class, method, args)
	if err != nil {
		if obj, isThrown := unwrapThrown(err); isThrown {
			return throwObj(obj)
		}
		return fail(err)
	}
	if method.ReturnsVoid {
		return ok()
	}
	if v == nil {
		return fail(fmt.Errorf("interpreter: %s.%s%s returned no value for a non-void method", class.Name, method.Name, method.Descriptor))
	}
	return e.pushOrFail(f, *v)
}

func (e *Engine) execInvokestatic(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPMethodRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a method reference", index))
	}
	owner, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	method, found := classloader.FindMethodInHierarchy(owner, entry.MemberName, entry.Descriptor)
	if !found {
		return e.raise("java/lang/NoSuchMethodError")
	}
	args, res := e.popArgs(f, method, false)
	if res.thrown != nil || res.fatal != nil {
		return res
	}
	return e.callResult(f, method.Class, method, args)
}

func (e *Engine) execInvokespecial(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPMethodRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a method reference", index))
	}
	owner, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	method, found := classloader.FindMethodInHierarchy(owner, entry.MemberName, entry.Descriptor)
	if !found {
		return e.raise("java/lang/NoSuchMethodError")
	}
	args, res := e.popArgs(f, method, true)
	if res.thrown != nil || res.fatal != nil {
		return res
	}
	return e.callResult(f, method.Class, method, args)
}

func (e *Engine) execInvokevirtual(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPMethodRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a method reference", index))
	}
	staticClass, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	staticMethod, found := classloader.FindMethodInHierarchy(staticClass, entry.MemberName, entry.Descriptor)
	if !found {
		return e.raise("java/lang/NoSuchMethodError")
	}
	args, res := e.popArgs(f, staticMethod, true)
	if res.thrown != nil || res.fatal != nil {
		return res
	}
	recv := args[0]
	method := staticMethod
	if !staticMethod.IsPrivate() {
		if dyn, ok3 := classloader.ResolveVirtualMethod(recv.Ref.Class, entry.MemberName, entry.Descriptor); ok3 {
			method = dyn
		}
	}
	return e.callResult(f, method.Class, method, args)
}

func (e *Engine) execInvokeinterface(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || (entry.Kind != runtime.RCPInterfaceMethodRef && entry.Kind != runtime.RCPMethodRef) {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not an interface method reference", index))
	}
	iface, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	ifaceMethod, found := classloader.FindInterfaceMethod(iface, entry.MemberName, entry.Descriptor)
	if !found {
		ifaceMethod, found = classloader.FindMethodInHierarchy(iface, entry.MemberName, entry.Descriptor)
	}
	if !found {
		return e.raise("java/lang/NoSuchMethodError")
	}
	args, res := e.popArgs(f, ifaceMethod, true)
	if res.thrown != nil || res.fatal != nil {
		return res
	}
	recv := args[0]
	method, ok3 := classloader.ResolveVirtualMethod(recv.Ref.Class, entry.MemberName, entry.Descriptor)
	if !ok3 {
		method = ifaceMethod
	}
	return e.callResult(f, method.Class, method, args)
}

func (e *Engine) execNew(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPClassRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a class reference", index))
	}
	class, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	if err := classloader.EnsureInit(e.Reg, class, thread.CurrentID()); err != nil {
		return e.throwFromErr(err)
	}
	obj := runtime.NewInstance(class)
	return e.pushOrFail(f, runtime.RefValue(obj))
}

var newarrayTypes = map[int]string{
	atBoolean: "boolean", atChar: "char", atFloat: "float", atDouble: "double",
	atByte: "byte", atShort: "short", atInt: "int", atLong: "long",
}

func (e *Engine) execNewarray(f *frame.Frame, atype int) stepResult {
	name, ok2 := newarrayTypes[atype]
	if !ok2 {
		return fail(fmt.Errorf("interpreter: unknown newarray type code %d", atype))
	}
	lenV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	n := lenV.Int32()
	if n < 0 {
		return e.raise("java/lang/NegativeArraySizeException")
	}
	prim, ok2 := e.Reg.PrimitiveClass(name)
	if !ok2 {
		return fail(fmt.Errorf("interpreter: no primitive class %q", name))
	}
	arrayClass, lerr := e.Reg.LoadClass(arrayDescriptorFor(prim.Primitive), f.Class.Loader, thread.CurrentID())
	if lerr != nil {
		return e.throwFromErr(lerr)
	}
	obj := runtime.NewArray(arrayClass, prim.Primitive, int(n))
	return e.pushOrFail(f, runtime.RefValue(obj))
}

func arrayDescriptorFor(t runtime.DataType) string {
	switch t {
	case runtime.TBoolean:
		return "[Z"
	case runtime.TByte:
		return "[B"
	case runtime.TChar:
		return "[C"
	case runtime.TShort:
		return "[S"
	case runtime.TInt:
		return "[I"
	case runtime.TLong:
		return "[J"
	case runtime.TFloat:
		return "[F"
	case runtime.TDouble:
		return "[D"
	}
	return "[Ljava/lang/Object;"
}

func (e *Engine) execAnewarray(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPClassRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a class reference", index))
	}
	lenV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	n := lenV.Int32()
	if n < 0 {
		return e.raise("java/lang/NegativeArraySizeException")
	}
	descriptor := "[L" + entry.ClassName + ";"
	arrayClass, lerr := e.resolveClass(f, descriptor)
	if lerr != nil {
		return e.throwFromErr(lerr)
	}
	obj := runtime.NewArray(arrayClass, runtime.TReference, int(n))
	return e.pushOrFail(f, runtime.RefValue(obj))
}

func (e *Engine) execMultianewarray(f *frame.Frame, classIndex, dims int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(classIndex)
	if !ok2 || entry.Kind != runtime.RCPClassRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a class reference", classIndex))
	}
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		v, err := f.Stack.Pop()
		if err != nil {
			return fail(err)
		}
		if v.Int32() < 0 {
			return e.raise("java/lang/NegativeArraySizeException")
		}
		counts[i] = v.Int32()
	}
	arrayClass, err := e.resolveClass(f, entry.ClassName)
	if err != nil {
		return e.throwFromErr(err)
	}
	obj, berr := e.buildMultiArray(arrayClass, counts)
	if berr != nil {
		return e.throwFromErr(berr)
	}
	return e.pushOrFail(f, runtime.RefValue(obj))
}

func (e *Engine) buildMultiArray(arrayClass *runtime.Class, counts []int32) (*runtime.Object, error) {
	n := counts[0]
	elemType := runtime.TReference
	if len(counts) == 1 && arrayClass.ElementClass != nil && arrayClass.ElementClass.Kind == runtime.ClassPrimitive {
		elemType = arrayClass.ElementClass.Primitive
	}
	obj := runtime.NewArray(arrayClass, elemType, int(n))
	if len(counts) == 1 {
		return obj, nil
	}
	for i := int32(0); i < n; i++ {
		child, err := e.buildMultiArray(arrayClass.ElementClass, counts[1:])
		if err != nil {
			return nil, err
		}
		obj.ArraySet(int(i), runtime.RefValue(child))
	}
	return obj, nil
}

func (e *Engine) execArraylength(f *frame.Frame) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	return e.pushOrFail(f, runtime.IntValue(int32(v.Ref.Len())))
}

func (e *Engine) execArrayLoad(f *frame.Frame) stepResult {
	idxV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	arrV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if arrV.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	v, in := arrV.Ref.ArrayGet(int(idxV.Int32()))
	if !in {
		return e.raise("java/lang/ArrayIndexOutOfBoundsException")
	}
	return e.pushOrFail(f, v)
}

func (e *Engine) execArrayStore(f *frame.Frame) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	idxV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	arrV, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if arrV.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	if v.Type == runtime.TReference && !v.IsNull() {
		if elem := arrV.Ref.Class.ElementClass; elem != nil && !v.Ref.Class.IsInstanceOf(elem) {
			return e.raise("java/lang/ArrayStoreException")
		}
	}
	assigned, okAssign := v.AssignTo(arrV.Ref.ElementType())
	if !okAssign {
		assigned = v
	}
	if !arrV.Ref.ArraySet(int(idxV.Int32()), assigned) {
		return e.raise("java/lang/ArrayIndexOutOfBoundsException")
	}
	return ok()
}

func (e *Engine) execAthrow(f *frame.Frame) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	return throwObj(v.Ref)
}

func (e *Engine) execCheckcast(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPClassRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a class reference", index))
	}
	v, err := f.Stack.Peek()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return ok()
	}
	target, rerr := e.resolveClass(f, entry.ClassName)
	if rerr != nil {
		return e.throwFromErr(rerr)
	}
	if !v.Ref.Class.IsInstanceOf(target) {
		return e.raise("java/lang/ClassCastException")
	}
	return ok()
}

func (e *Engine) execInstanceof(f *frame.Frame, index int) stepResult {
	entry, ok2 := f.Class.ConstantPool.Get(index)
	if !ok2 || entry.Kind != runtime.RCPClassRef {
		return fail(fmt.Errorf("interpreter: constant pool slot %d is not a class reference", index))
	}
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return e.pushOrFail(f, runtime.IntValue(0))
	}
	target, rerr := e.resolveClass(f, entry.ClassName)
	if rerr != nil {
		return e.throwFromErr(rerr)
	}
	if v.Ref.Class.IsInstanceOf(target) {
		return e.pushOrFail(f, runtime.IntValue(1))
	}
	return e.pushOrFail(f, runtime.IntValue(0))
}

func (e *Engine) execMonitorenter(f *frame.Frame) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	v.Ref.Monitor.Enter(thread.CurrentID())
	return ok()
}

func (e *Engine) execMonitorexit(f *frame.Frame) stepResult {
	v, err := f.Stack.Pop()
	if err != nil {
		return fail(err)
	}
	if v.IsNull() {
		return e.raise("java/lang/NullPointerException")
	}
	if err := v.Ref.Monitor.Exit(thread.CurrentID()); err != nil {
		return e.raise("java/lang/IllegalMonitorStateException")
	}
	return ok()
}
