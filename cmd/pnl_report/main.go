// 从交易流水库生成简单的 PnL 报告。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"ping-maker-go/journal"
)

func main() {
	dbPath := flag.String("journal", "data/journal.db", "流水库路径")
	limit := flag.Int("n", 50, "最多展示的回合数")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("流水库不存在: %v", err)
	}
	j, err := journal.Open(*dbPath)
	if err != nil {
		log.Fatalf("打开流水库失败: %v", err)
	}
	defer j.Close()

	fills, err := j.RecentFills(*limit)
	if err != nil {
		log.Fatalf("读取流水失败: %v", err)
	}
	if len(fills) == 0 {
		fmt.Println("没有记录")
		return
	}

	var totalPnL float64
	var wins, losses, emergencies int
	var totalHold time.Duration

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLOSED\tLAYER\tENTRY\tEXIT\tQTY\tPNL\tHOLD\tEMERGENCY")
	for _, f := range fills {
		totalPnL += f.PnL
		if f.PnL >= 0 {
			wins++
		} else {
			losses++
		}
		if f.Emergency {
			emergencies++
		}
		hold := f.ClosedAt.Sub(f.OpenedAt).Round(time.Second)
		totalHold += hold
		fmt.Fprintf(w, "%s\t%.8s\t%.4f\t%.4f\t%.6f\t%+.4f\t%s\t%v\n",
			f.ClosedAt.Format("01-02 15:04:05"),
			f.LayerID, f.EntryPrice, f.ExitPrice, f.Quantity, f.PnL, hold, f.Emergency)
	}
	w.Flush()

	n := len(fills)
	fmt.Printf("\n回合数: %d  胜: %d  负: %d  紧急平仓: %d\n", n, wins, losses, emergencies)
	fmt.Printf("合计 PnL: %+.4f  平均持仓: %s\n", totalPnL, (totalHold / time.Duration(n)).Round(time.Second))
}
