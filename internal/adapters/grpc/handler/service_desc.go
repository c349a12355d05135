package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// DriverServiceName は gRPC のサービス名です。
const DriverServiceName = "driverkpi.v1.DriverService"

// DriverServiceServer は DriverService の各メソッドです。
// 要求・応答はいずれも google.protobuf.Struct で、キーは JSON と同じ camelCase です。
type DriverServiceServer interface {
	CreateDriver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateDriver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ArchiveDrivers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnarchiveDrivers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteDriver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDriver(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListDrivers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkWeekDone(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkAssign(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Undo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportCSV(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportCSV(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MonthlyStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FollowUps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetFilter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncNow(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(DriverServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// DriverServiceDesc は生成コードを使わずに組み立てたサービス定義です。
var DriverServiceDesc = grpc.ServiceDesc{
	ServiceName: DriverServiceName,
	HandlerType: (*DriverServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateDriver", DriverServiceServer.CreateDriver),
		unaryMethod("UpdateDriver", DriverServiceServer.UpdateDriver),
		unaryMethod("ArchiveDrivers", DriverServiceServer.ArchiveDrivers),
		unaryMethod("UnarchiveDrivers", DriverServiceServer.UnarchiveDrivers),
		unaryMethod("DeleteDriver", DriverServiceServer.DeleteDriver),
		unaryMethod("GetDriver", DriverServiceServer.GetDriver),
		unaryMethod("ListDrivers", DriverServiceServer.ListDrivers),
		unaryMethod("MarkWeekDone", DriverServiceServer.MarkWeekDone),
		unaryMethod("BulkAssign", DriverServiceServer.BulkAssign),
		unaryMethod("Undo", DriverServiceServer.Undo),
		unaryMethod("ImportCSV", DriverServiceServer.ImportCSV),
		unaryMethod("ExportCSV", DriverServiceServer.ExportCSV),
		unaryMethod("MonthlyStats", DriverServiceServer.MonthlyStats),
		unaryMethod("Dashboard", DriverServiceServer.Dashboard),
		unaryMethod("FollowUps", DriverServiceServer.FollowUps),
		unaryMethod("SaveView", DriverServiceServer.SaveView),
		unaryMethod("ApplyView", DriverServiceServer.ApplyView),
		unaryMethod("DeleteView", DriverServiceServer.DeleteView),
		unaryMethod("SetFilter", DriverServiceServer.SetFilter),
		unaryMethod("SyncNow", DriverServiceServer.SyncNow),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "driverkpi/v1/driver.proto",
}

// RegisterDriverServiceServer は srv を s に登録します。
func RegisterDriverServiceServer(s grpc.ServiceRegistrar, srv DriverServiceServer) {
	s.RegisterService(&DriverServiceDesc, srv)
}

// FullMethodName は Invoke 用のメソッド名 "/driverkpi.v1.DriverService/<method>" を返します。
func FullMethodName(method string) string {
	return "/" + DriverServiceName + "/" + method
}

func unaryMethod(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(DriverServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethodName(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			})
		},
	}
}
