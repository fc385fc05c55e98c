package machine

type callbacks struct {
	step []func(string) //进入安装流程的某一步

	done []func(Result) //一个安装流程成功结束
}

func (m *M) AddStepCallback(f func(string)) {
	m.step = append(m.step, f)
}
func (m *M) callStepCallback(name string) {
	for _, f := range m.step {
		f(name)
	}
}

func (m *M) AddDoneCallback(f func(Result)) {
	m.done = append(m.done, f)
}
func (m *M) callDoneCallback(r Result) {
	for _, f := range m.done {
		f(r)
	}
}
