package layout

import (
	"github.com/emirpasic/gods/stacks/arraystack"
)

// frameStack 是样式帧栈，元素均为 StyleFrame 值（入栈时复制，不共享引用）。
// 栈底是由文本对象属性构成的隐式顶层帧，永远不会被弹出。
type frameStack struct {
	s *arraystack.Stack
}

func newFrameStack(base StyleFrame) *frameStack {
	fs := &frameStack{s: arraystack.New()}
	fs.s.Push(base)
	return fs
}

func (fs *frameStack) top() StyleFrame {
	v, _ := fs.s.Peek()
	return v.(StyleFrame)
}

// set 替换栈顶帧。
func (fs *frameStack) set(f StyleFrame) {
	fs.s.Pop()
	fs.s.Push(f)
}

// push 复制栈顶帧并入栈。
func (fs *frameStack) push() {
	fs.s.Push(fs.top())
}

// pop 弹出栈顶帧；只剩顶层帧时忽略并返回 false。
func (fs *frameStack) pop() bool {
	if fs.s.Size() <= 1 {
		return false
	}
	fs.s.Pop()
	return true
}
