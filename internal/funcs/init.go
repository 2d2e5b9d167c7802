package funcs

var Kfm *KeccakFunctionManager

func Init() {
	Kfm = NewKeccakFunctionManager()
}
