package classloader

import "github.com/embervm/embervm/internal/runtime"

// FindFieldRecursive implements field resolution order (§4.3, §4.7): a
// field reference is resolved by searching the class itself, then each
// direct superinterface depth-first, then the superclass, recursively —
// the same order FieldStorageLayout's instance layout is built in, so a
// FieldId found here always addresses the right slot in any subclass's
// storage too.
func FindFieldRecursive(class *runtime.Class, name, descriptor string) (*runtime.Field, *runtime.Class, bool) {
	if class == nil {
		return nil, nil, false
	}
	if f := class.FindFieldDeclared(name, descriptor); f != nil {
		return f, class, true
	}
	for _, iface := range class.Interfaces {
		if f, owner, ok := FindFieldRecursive(iface, name, descriptor); ok {
			return f, owner, ok
		}
	}
	if class.SuperClass != nil {
		return FindFieldRecursive(class.SuperClass, name, descriptor)
	}
	return nil, nil, false
}

// FindMethodInHierarchy resolves a method reference by searching class and
// its superclass chain only (no interfaces) — the resolution order used by
// invokestatic/invokespecial, and the starting point for invokevirtual
// dispatch when called with the receiver's dynamic class: since the walk
// begins at the dynamic type, the first match found is automatically the
// most-derived override.
func FindMethodInHierarchy(class *runtime.Class, name, descriptor string) (*runtime.Method, bool) {
	for cur := class; cur != nil; cur = cur.SuperClass {
		if m := cur.FindMethodDeclared(name, descriptor); m != nil {
			return m, true
		}
	}
	return nil, false
}

// FindInterfaceMethod resolves a method against a class's transitive
// interface set, depth-first — the fallback invokeinterface uses when
// FindMethodInHierarchy finds nothing concrete (the target is a default or
// abstract interface method).
func FindInterfaceMethod(class *runtime.Class, name, descriptor string) (*runtime.Method, bool) {
	for cur := class; cur != nil; cur = cur.SuperClass {
		for _, iface := range cur.Interfaces {
			if m, ok := findInterfaceMethodRec(iface, name, descriptor); ok {
				return m, true
			}
		}
	}
	return nil, false
}

func findInterfaceMethodRec(iface *runtime.Class, name, descriptor string) (*runtime.Method, bool) {
	if m := iface.FindMethodDeclared(name, descriptor); m != nil {
		return m, true
	}
	for _, super := range iface.Interfaces {
		if m, ok := findInterfaceMethodRec(super, name, descriptor); ok {
			return m, true
		}
	}
	return nil, false
}

// ResolveVirtualMethod implements invokevirtual dispatch: starting from the
// receiver's dynamic class (not the static type at the call site), find the
// first declared match walking up the superclass chain; if none is found
// there (an interface method with no class override), fall back to the
// interface set.
func ResolveVirtualMethod(dynamicClass *runtime.Class, name, descriptor string) (*runtime.Method, bool) {
	if m, ok := FindMethodInHierarchy(dynamicClass, name, descriptor); ok {
		return m, true
	}
	return FindInterfaceMethod(dynamicClass, name, descriptor)
}
