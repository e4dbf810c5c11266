package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/haldag/haldag/db"
	"github.com/haldag/haldag/serialize/sp"
	"github.com/haldag/haldag/utils"
)

var output *os.File

func main() {
	dbpath := flag.String("dbpath", "", `path of database`)
	r := flag.String("range", "", `view joint via main chain index range, like "1-100", "56", "-1"`)
	u := flag.String("u", "", `view joint via unit hash in hex format`)
	b := flag.String("ball", "", `view joint via ball in hex format`)

	o := flag.String("o", "", `result output file; if it's null it will print to stdout`)
	flag.Parse()
	var err error

	if len(*dbpath) == 0 {
		fmt.Println("empty db path")
		os.Exit(1)
	}

	if err = utils.AccessCheck(*dbpath); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err = db.Init(*dbpath); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if len(*o) != 0 {
		if err = utils.AccessCheck(*o); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		output, err = os.OpenFile(*o, os.O_RDWR|os.O_CREATE, 0755)
		if err != nil {
			fmt.Printf("open file %s failed:%v\n", *o, err)
			os.Exit(1)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if len(*r) != 0 {
		err = rangeView(*r)
	} else if len(*u) != 0 {
		err = unitView(*u)
	} else if len(*b) != 0 {
		err = ballView(*b)
	} else {
		fmt.Println(`please input "-range" or "-u" or "-ball" to choose what to view`)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("error happen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Finish.")
}

func rangeView(r string) error {
	var begin, end uint64

	num, err := strconv.ParseInt(r, 10, 64)
	if err == nil {
		if num == -1 {
			mci, err := db.GetLastStableMCI()
			if err != nil {
				return fmt.Errorf("err %v", err)
			}
			begin = mci
			end = mci
		} else if num >= 0 {
			begin = uint64(num)
			end = uint64(num)
		} else {
			return fmt.Errorf("invalid index %d", num)
		}
	} else {
		n, err := fmt.Sscanf(r, "%d-%d", &begin, &end)
		if err != nil || n != 2 || begin >= end {
			return fmt.Errorf("invalid range")
		}
	}

	for i := begin; i <= end; i++ {
		unit, err := db.GetMainChainUnit(i)
		if err != nil {
			return fmt.Errorf("get mci %d joint failed", i)
		}
		if err := outputUnit(unit, i); err != nil {
			return err
		}
	}

	return nil
}

func unitView(hash string) error {
	decoded, err := utils.FromHex(hash)
	if err != nil {
		return fmt.Errorf("decode %s failed", hash)
	}
	if len(decoded) != utils.HashLength {
		return fmt.Errorf("invalid hash size %d", len(decoded))
	}

	mci, err := db.GetUnitMCI(decoded)
	if err != nil {
		return fmt.Errorf("get joint via %s failed", hash)
	}

	return outputUnit(decoded, mci)
}

func ballView(ball string) error {
	decoded, err := utils.FromHex(ball)
	if err != nil {
		return fmt.Errorf("decode %s failed", ball)
	}
	if len(decoded) != utils.HashLength {
		return fmt.Errorf("invalid ball size %d", len(decoded))
	}

	unit, err := db.GetUnitByBall(decoded)
	if err != nil {
		return fmt.Errorf("get joint via ball %s failed", ball)
	}

	mci, err := db.GetUnitMCI(unit)
	if err != nil {
		return fmt.Errorf("get mci of %X failed", unit)
	}

	return outputUnit(unit, mci)
}

func outputUnit(unit []byte, mci uint64) error {
	joint, err := db.GetJoint(unit)
	if err != nil {
		return fmt.Errorf("get joint %X failed", unit)
	}
	record, err := db.GetBallRecord(unit)
	if err != nil {
		return fmt.Errorf("get ball record of %X failed", unit)
	}
	formatOutputJoint(joint, record, mci)
	return nil
}

func wirte(format string, v ...interface{}) {
	if _, err := output.Write([]byte(fmt.Sprintf(format, v...))); err != nil {
		fmt.Printf("output err:%v\n", err)
		os.Exit(1)
	}
}

func formatOutputJoint(joint *sp.Joint, record *sp.BallRecord, mci uint64) {
	format :=
		`>>>>> [Joint %d] %X
version		%d
time		%s
ball		%X
authors		%s
parents		%s
lastBallUnit	%X
lastBall	%X
witnessListHash	%X
nonserial	%d

`
	u := joint.Unit

	wirte(format, mci, joint.UnitHash(),
		u.Version,
		utils.TimeToString(u.Time),
		joint.Ball,
		hexList(u.Authors),
		hexList(u.Parents),
		u.LastBallUnit,
		u.LastBall,
		u.WitnessListHash,
		u.Nonserial)

	if record != nil {
		formatOutputBallRecord(record)
	}
}

func formatOutputBallRecord(record *sp.BallRecord) {
	format :=
		`[BallRecord] %X
unit		%X
parentBalls	%s
skiplistBalls	%s
nonserial	%d

`
	wirte(format, record.Ball,
		record.Unit,
		hexList(record.ParentBalls),
		hexList(record.SkiplistBalls),
		record.Nonserial)
}

func hexList(items [][]byte) string {
	if len(items) == 0 {
		return "NONE"
	}

	result := ""
	for i, item := range items {
		if i != 0 {
			result += ","
		}
		result += utils.ToHex(item)
	}
	return result
}
