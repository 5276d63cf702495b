package classloader

import (
	"fmt"

	"github.com/embervm/embervm/internal/classfile"
	"github.com/embervm/embervm/internal/runtime"
)

// Link implements Class::link (§4.3): this_class name assertion, recursive
// super/interface resolution, method/field materialisation with
// field-resolution-order layout computation, raw constant pool conversion,
// and Class construction.
func Link(r *Registry, expectedName string, cf *classfile.ClassFile, loader runtime.LoaderID, currentThread uint64) (*runtime.Class, error) {
	actualName, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("classloader: reading this_class: %w", err)
	}
	if actualName != expectedName {
		return nil, fmt.Errorf("classloader: class name mismatch: requested %q, class file declares %q", expectedName, actualName)
	}

	class := runtime.NewClass(actualName, runtime.ClassNormal)
	class.AccessFlags = cf.AccessFlags
	class.Loader = loader
	class.SourceFile = string(cf.SourceFile)

	if actualName != "java/lang/Object" {
		superName, err := cf.SuperClassName()
		if err != nil {
			return nil, fmt.Errorf("classloader: reading super_class of %s: %w", actualName, err)
		}
		if superName == "" {
			return nil, fmt.Errorf("classloader: %s has no superclass but is not java/lang/Object", actualName)
		}
		super, err := r.LoadClass(superName, loader, currentThread)
		if err != nil {
			return nil, fmt.Errorf("classloader: resolving superclass %s of %s: %w", superName, actualName, err)
		}
		class.SuperClass = super
	}

	for _, ifaceIdx := range cf.Interfaces {
		ifaceName, err := classfile.GetClassName(cf.ConstantPool, ifaceIdx)
		if err != nil {
			return nil, fmt.Errorf("classloader: reading interface of %s: %w", actualName, err)
		}
		iface, err := r.LoadClass(ifaceName, loader, currentThread)
		if err != nil {
			return nil, fmt.Errorf("classloader: resolving interface %s of %s: %w", ifaceName, actualName, err)
		}
		class.Interfaces = append(class.Interfaces, iface)
	}

	if err := buildFields(class, cf); err != nil {
		return nil, fmt.Errorf("classloader: building fields of %s: %w", actualName, err)
	}

	if err := buildMethods(class, cf); err != nil {
		return nil, fmt.Errorf("classloader: building methods of %s: %w", actualName, err)
	}

	class.ConstantPool = buildRuntimeConstantPool(cf.ConstantPool)

	// If java/lang/Class is already loaded, populate the mirror now;
	// otherwise the bootstrap fix-up pass (internal/vm) does it once
	// java/lang/Class itself finishes linking.
	if mirrorClass, ok := r.lookupLoadedNoBlock("java/lang/Class", BootstrapLoader); ok {
		class.SetClassObject(runtime.NewClassMirror(mirrorClass, class))
	}

	return class, nil
}

func fieldTypeToRuntime(ft *classfile.FieldType) (runtime.DataType, string) {
	switch ft.Kind {
	case classfile.TBoolean:
		return runtime.TBoolean, ""
	case classfile.TByte:
		return runtime.TByte, ""
	case classfile.TChar:
		return runtime.TChar, ""
	case classfile.TShort:
		return runtime.TShort, ""
	case classfile.TInt:
		return runtime.TInt, ""
	case classfile.TLong:
		return runtime.TLong, ""
	case classfile.TFloat:
		return runtime.TFloat, ""
	case classfile.TDouble:
		return runtime.TDouble, ""
	case classfile.TReference:
		return runtime.TReference, ft.ClassName
	case classfile.TArray:
		return runtime.TReference, ft.String() // array class name is its own descriptor
	default:
		return runtime.TReference, ""
	}
}

// buildFields materialises declared fields and computes the
// field-resolution-order instance layout: this class's own instance
// fields, then each direct superinterface's inherited layout depth-first,
// then the superclass's inherited layout. Static fields get their own
// per-class layout, not inherited.
func buildFields(class *runtime.Class, cf *classfile.ClassFile) error {
	instance := runtime.NewFieldStorageLayout()
	static := runtime.NewFieldStorageLayout()
	instance.BeginClass(class.Name)
	static.BeginClass(class.Name)

	for _, fi := range cf.Fields {
		name := string(fi.Name)
		desc := string(fi.Descriptor)
		ft, err := classfile.ParseFieldDescriptor(desc)
		if err != nil {
			return fmt.Errorf("parsing descriptor of field %s: %w", name, err)
		}
		dt, className := fieldTypeToRuntime(ft)

		class.Fields = append(class.Fields, &runtime.Field{
			Name: name, Descriptor: desc, Type: dt, ClassName: className, AccessFlags: fi.AccessFlags,
		})

		if fi.AccessFlags&classfile.AccStatic != 0 {
			static.Append(class.Name, name, desc, dt, className)
		} else {
			instance.Append(class.Name, name, desc, dt, className)
		}
	}

	for _, iface := range class.Interfaces {
		appendInheritedLayout(instance, iface.InstanceLayout)
	}
	if class.SuperClass != nil {
		appendInheritedLayout(instance, class.SuperClass.InstanceLayout)
	}

	class.InstanceLayout = instance
	class.StaticLayout = static
	class.StaticValues = runtime.NewFieldStorage(static)
	return nil
}

func appendInheritedLayout(dst, src *runtime.FieldStorageLayout) {
	if src == nil {
		return
	}
	for i, t := range src.Types {
		declaring := src.Declaring[i]
		dst.BeginClass(declaring)
		dst.Append(declaring, src.Names[i], src.Descriptors[i], t, src.ClassNames[i])
	}
}

func buildMethods(class *runtime.Class, cf *classfile.ClassFile) error {
	for _, mi := range cf.Methods {
		name := string(mi.Name)
		desc := string(mi.Descriptor)
		md, err := classfile.ParseMethodDescriptor(desc)
		if err != nil {
			return fmt.Errorf("parsing descriptor of method %s: %w", name, err)
		}

		paramTypes := make([]runtime.DataType, len(md.Parameters))
		for i, p := range md.Parameters {
			dt, _ := fieldTypeToRuntime(p)
			paramTypes[i] = dt
		}

		method := &runtime.Method{
			Name:        name,
			Descriptor:  desc,
			ParamTypes:  paramTypes,
			AccessFlags: mi.AccessFlags,
			Class:       class,
		}
		if md.ReturnType.Kind == classfile.TVoid {
			method.ReturnsVoid = true
		} else {
			method.ReturnType, _ = fieldTypeToRuntime(md.ReturnType)
		}

		switch {
		case mi.AccessFlags&classfile.AccNative != 0:
			method.CodeKind = runtime.CodeNative
			method.Native = &runtime.NativeCode{}
		case mi.AccessFlags&classfile.AccAbstract != 0:
			method.CodeKind = runtime.CodeAbstract
		default:
			if mi.Code == nil {
				return fmt.Errorf("method %s%s has no Code attribute and is neither native nor abstract", name, desc)
			}
			handlers := make([]runtime.ExceptionHandler, len(mi.Code.ExceptionHandlers))
			for i, h := range mi.Code.ExceptionHandlers {
				handlers[i] = runtime.ExceptionHandler{
					StartPC: int(h.StartPC), EndPC: int(h.EndPC), HandlerPC: int(h.HandlerPC), CatchType: h.CatchType,
				}
			}
			method.CodeKind = runtime.CodeJava
			method.Java = &runtime.JavaCode{
				MaxStack: int(mi.Code.MaxStack), MaxLocals: int(mi.Code.MaxLocals),
				Bytecode: mi.Code.Code, ExceptionHandlers: handlers,
			}
		}

		class.Methods = append(class.Methods, method)
	}
	return nil
}

func buildRuntimeConstantPool(pool []classfile.ConstantPoolEntry) *runtime.RuntimeConstantPool {
	rcp := runtime.NewRuntimeConstantPool(len(pool))
	for i, entry := range pool {
		if entry == nil {
			continue
		}
		switch e := entry.(type) {
		case *classfile.ConstantUtf8:
			s, err := classfile.GetUtf8(pool, uint16(i))
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPString, Str: s})
			}
		case *classfile.ConstantInteger:
			rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPInteger, Int: e.Value})
		case *classfile.ConstantFloat:
			rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPFloat, Flt: e.Value})
		case *classfile.ConstantLong:
			rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPLong, Lng: e.Value})
		case *classfile.ConstantDouble:
			rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPDouble, Dbl: e.Value})
		case *classfile.ConstantClass:
			name, err := classfile.GetClassName(pool, uint16(i))
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPClassRef, ClassName: name})
			}
		case *classfile.ConstantString:
			s, err := classfile.GetUtf8(pool, e.StringIndex)
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPString, Str: s})
			}
		case *classfile.ConstantFieldref:
			ref, err := classfile.ResolveFieldref(pool, uint16(i))
			if err == nil {
				dt := runtime.TReference
				if ft, ferr := classfile.ParseFieldDescriptor(ref.Descriptor); ferr == nil {
					dt, _ = fieldTypeToRuntime(ft)
				}
				rcp.Set(i, runtime.RCPEntry{
					Kind: runtime.RCPFieldRef, ClassName: ref.ClassName, MemberName: ref.FieldName,
					Descriptor: ref.Descriptor, FieldType: dt,
				})
			}
		case *classfile.ConstantMethodref:
			ref, err := classfile.ResolveMethodref(pool, uint16(i))
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPMethodRef, ClassName: ref.ClassName, MemberName: ref.MethodName, Descriptor: ref.Descriptor})
			}
		case *classfile.ConstantInterfaceMethodref:
			ref, err := classfile.ResolveInterfaceMethodref(pool, uint16(i))
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPInterfaceMethodRef, ClassName: ref.ClassName, MemberName: ref.MethodName, Descriptor: ref.Descriptor})
			}
		case *classfile.ConstantNameAndType:
			name, nerr := classfile.GetUtf8(pool, e.NameIndex)
			desc, derr := classfile.GetUtf8(pool, e.DescriptorIndex)
			if nerr == nil && derr == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPNameAndType, MemberName: name, Descriptor: desc})
			}
		case *classfile.ConstantMethodHandle:
			rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPMethodHandle})
		case *classfile.ConstantMethodType:
			desc, err := classfile.GetUtf8(pool, e.DescriptorIndex)
			if err == nil {
				rcp.Set(i, runtime.RCPEntry{Kind: runtime.RCPMethodType, Descriptor: desc})
			}
		case *classfile.ConstantDynamic:
			kind := runtime.RCPDynamic
			if e.Invoke {
				kind = runtime.RCPInvokeDynamic
			}
			rcp.Set(i, runtime.RCPEntry{Kind: kind, BootstrapMethodIndex: int(e.BootstrapMethodAttrIndex)})
		}
	}
	return rcp
}
