package state

import (
	"fmt"

	"gprover/internal/smt"
)

// Enviroment is the call environment of one external invocation: fresh
// unconstrained symbols for the sender, the attached value, and the block
// fields.
type Enviroment struct {
	Name           string
	MsgSender      *smt.BitVec
	MsgValue       *smt.BitVec
	BlockTimestamp *smt.BitVec
	BlockNumber    *smt.BitVec
}

func NewEnviroment(name string) *Enviroment {
	return &Enviroment{
		Name:           name,
		MsgSender:      smt.NewBitVec(fmt.Sprintf("%s.msg.sender", name), smt.DefaultBitVecSize),
		MsgValue:       smt.NewBitVec(fmt.Sprintf("%s.msg.value", name), smt.DefaultBitVecSize),
		BlockTimestamp: smt.NewBitVec(fmt.Sprintf("%s.block.timestamp", name), smt.DefaultBitVecSize),
		BlockNumber:    smt.NewBitVec(fmt.Sprintf("%s.block.number", name), smt.DefaultBitVecSize),
	}
}

func (env *Enviroment) Field(path []string) (*smt.BitVec, error) {
	if len(path) == 2 {
		switch path[0] + "." + path[1] {
		case "msg.sender":
			return env.MsgSender, nil
		case "msg.value":
			return env.MsgValue, nil
		case "block.timestamp":
			return env.BlockTimestamp, nil
		case "block.number":
			return env.BlockNumber, nil
		}
	}
	return nil, fmt.Errorf("unknown environment field %v", path)
}

func (env *Enviroment) Clone() *Enviroment {
	if env == nil {
		return nil
	}
	return &Enviroment{
		Name:           env.Name,
		MsgSender:      env.MsgSender,
		MsgValue:       env.MsgValue,
		BlockTimestamp: env.BlockTimestamp,
		BlockNumber:    env.BlockNumber,
	}
}
