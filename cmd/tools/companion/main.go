package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/empathyai/companion/internal/client"
	"github.com/empathyai/companion/internal/model/chat"
	"github.com/empathyai/companion/internal/model/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	baseURL := flag.String("base-url", "http://localhost:8000", "后端服务地址")
	email := flag.String("email", "", "登录邮箱")
	password := flag.String("password", "", "登录密码")
	signup := flag.Bool("signup", false, "先注册账号再登录")
	name := flag.String("name", "", "注册时的昵称")
	phone := flag.String("phone", "", "注册时的电话")
	text := flag.String("text", "", "要发送的消息文本")
	emotionTag := flag.String("emotion", "neutral", "消息携带的情绪标签")
	audioPath := flag.String("audio", "", "通过转写发送的音频文件路径")
	wait := flag.Duration("wait", 3*time.Second, "等待订阅快照的时间")
	timeout := flag.Duration("timeout", 45*time.Second, "整体超时时间")

	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		log.Fatal("请通过 -email 和 -password 提供登录凭证")
	}
	if *text == "" && *audioPath == "" {
		flag.Usage()
		log.Fatal("请通过 -text 或 -audio 提供要发送的内容")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := client.NewAPI(*baseURL)
	sink := client.ErrorSink(func(e *client.Error) {
		log.Printf("[%s] %s: %v", e.Category, e.Message, e.Err)
	})
	synchronizer := client.NewSynchronizer(api, api, sink)
	gate := client.NewGate(api, api, synchronizer, client.NewNavigator(), sink)

	if *signup {
		profile := user.Profile{Name: *name, Email: *email, Phone: *phone}
		if err := gate.SignUp(ctx, profile, *password); err != nil {
			log.Fatalf("注册失败: %v", err)
		}
		log.Println("注册并登录成功")
	} else {
		if err := gate.SignIn(ctx, *email, *password); err != nil {
			log.Fatalf("登录失败: %v", err)
		}
		log.Println("登录成功")
	}

	if *audioPath != "" {
		sendRecording(ctx, api, gate, *audioPath)
	}
	if *text != "" {
		if err := gate.Send(ctx, *text, *emotionTag); err != nil {
			log.Fatalf("发送失败: %v", err)
		}
	}

	// Give the subscription a moment to echo the persisted log back.
	select {
	case <-time.After(*wait):
	case <-ctx.Done():
	}

	for _, m := range synchronizer.Messages() {
		printMessage(m)
	}

	if err := gate.SignOut(ctx); err != nil {
		log.Fatalf("退出登录失败: %v", err)
	}
	log.Println("已退出登录")
}

func sendRecording(ctx context.Context, api *client.API, gate *client.Gate, audioPath string) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	transcript, err := api.Transcribe(ctx, audio, client.DownloadFilename)
	if err != nil {
		log.Fatalf("转写失败: %v", err)
	}
	log.Printf("转写结果: %q", transcript)

	if strings.TrimSpace(transcript) == "" {
		return
	}
	if err := gate.Send(ctx, transcript, chat.EmotionTranscribed); err != nil {
		log.Fatalf("发送转写消息失败: %v", err)
	}
}

func printMessage(m chat.Message) {
	tag := ""
	if m.Emotion != "" {
		tag = " (" + m.Emotion + ")"
	}
	log.Printf("%s [%s]%s %s", m.Timestamp.Local().Format("15:04:05"), m.Sender, tag, m.Text)
}
